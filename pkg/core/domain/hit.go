package domain

// Hit carries the raw, unvalidated inputs of one beacon request.
// Empty fields mean the input was absent.
type Hit struct {
	RemoteAddr string
	URL        string
	Referrer   string
	UserAgent  string
}
