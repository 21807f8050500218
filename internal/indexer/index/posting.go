package index

// Posting records how often a term occurs in one document of a shard.
type Posting struct {
	Ref       string `json:"r"`
	Frequency int    `json:"f"`
}

// PostingList is sorted by Ref.
type PostingList []Posting

// TermEntry pairs a term with its posting list.
type TermEntry struct {
	Term     string
	Postings PostingList
}
