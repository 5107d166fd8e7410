package services

// Page is a 1-based page request.
type Page struct {
	Page  int
	Limit int
}

// normalize clamps the page to >= 1 and the limit to [1, max], substituting
// def for a missing limit.
func (p Page) normalize(def, max int) Page {
	if p.Page < 1 {
		p.Page = 1
	}
	if p.Limit <= 0 {
		p.Limit = def
	}
	if p.Limit > max {
		p.Limit = max
	}
	return p
}

func (p Page) offset() int {
	return (p.Page - 1) * p.Limit
}
