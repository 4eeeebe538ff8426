package pinger

// Probe wire protocol shared by the prober and the ping responder.
const (
	// ChallengeHeader carries the challenge token on the probe request.
	ChallengeHeader = "challenge-key"

	// ResponseHeader carries the response key on the answer.
	ResponseHeader = "response-key"

	// StatusOK and StatusError are the values of ResponseBody.Status.
	StatusOK    = "OK"
	StatusError = "ERROR"
)

// ResponseBody is the JSON answer of a probed endpoint.
type ResponseBody struct {
	Status      string `json:"status"`
	ResponseKey string `json:"responseKey,omitempty"`
}
