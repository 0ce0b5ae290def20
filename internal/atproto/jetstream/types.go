package jetstream

// JetstreamEvent represents an event from the Jetstream firehose
// Jetstream documentation: https://docs.bsky.app/docs/advanced-guides/jetstream
type JetstreamEvent struct {
	Did      string         `json:"did"`
	TimeUS   int64          `json:"time_us"`
	Kind     string         `json:"kind"` // "account", "commit", "identity"
	Commit   *CommitEvent   `json:"commit,omitempty"`
	Account  *AccountEvent  `json:"account,omitempty"`
	Identity *IdentityEvent `json:"identity,omitempty"`
}

// CommitEvent carries a record operation from a repository commit
type CommitEvent struct {
	Record     map[string]interface{} `json:"record,omitempty"`
	Rev        string                 `json:"rev"`
	Operation  string                 `json:"operation"` // "create", "update", "delete"
	Collection string                 `json:"collection"`
	RKey       string                 `json:"rkey"`
	CID        string                 `json:"cid,omitempty"`
}

// AccountEvent signals account status changes
type AccountEvent struct {
	Active bool   `json:"active"`
	Did    string `json:"did"`
	Seq    int64  `json:"seq"`
	Time   string `json:"time"`
}

// IdentityEvent signals handle changes for a DID
type IdentityEvent struct {
	Did    string `json:"did"`
	Handle string `json:"handle"`
	Seq    int64  `json:"seq"`
	Time   string `json:"time"`
}
