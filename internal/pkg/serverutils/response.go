package serverutils

// ErrorBody is the JSON shape every failed request gets. Success responses
// return their operation's payload directly — the wire contract predates
// this server and has no envelope.
type ErrorBody struct {
	Error string `json:"error"`
}

func ErrorResponse(message string) ErrorBody {
	return ErrorBody{Error: message}
}
