package elodto

// Invocation is one inbound command. TeamID scopes every read and write;
// UserID is the invoker and is checked against the reported participants.
type Invocation struct {
	TeamID string
	UserID string
	Text   string
}
