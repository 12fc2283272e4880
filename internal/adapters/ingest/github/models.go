package github

// Commit is a partial commits listing entry with the fields staging reads back
type Commit struct {
	SHA    string       `json:"sha"`
	Author *Account     `json:"author"`
	Commit CommitDetail `json:"commit"`
}

// Account is the GitHub user linked to a commit; null when the author email
// is not associated with any account
type Account struct {
	ID    int64  `json:"id"`
	Login string `json:"login"`
}

// CommitDetail is the git level metadata embedded in a listing entry
type CommitDetail struct {
	Author *Signature `json:"author"`
}

// Signature is a git author or committer line. Date is kept verbatim so
// callers can enforce their own format
type Signature struct {
	Name  string `json:"name"`
	Email string `json:"email"`
	Date  string `json:"date"`
}
