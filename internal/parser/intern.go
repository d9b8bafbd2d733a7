package parser

// MaxInternPoolSize limits the intern pool. Past the limit strings are
// returned without being stored.
const MaxInternPoolSize = 100000

// StringIntern deduplicates strings so that the field names and type tags
// repeated on every record share one backing array. One interner serves one
// parse and is not safe for concurrent use.
type StringIntern struct {
	pool map[string]string
}

// NewStringIntern creates an empty interner.
func NewStringIntern() *StringIntern {
	return &StringIntern{
		pool: make(map[string]string, 64),
	}
}

// Intern returns the canonical copy of s.
func (si *StringIntern) Intern(s string) string {
	if pooled, ok := si.pool[s]; ok {
		return pooled
	}
	if len(si.pool) >= MaxInternPoolSize {
		return s
	}
	si.pool[s] = s
	return s
}

// Len returns the number of unique strings in the pool.
func (si *StringIntern) Len() int {
	return len(si.pool)
}
