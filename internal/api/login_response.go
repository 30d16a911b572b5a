package api

// LoginPayload is the additionalPayload of a successful /user/login answer.
type LoginPayload struct {
	Token        string `json:"token"`
	Username     string `json:"username"`
	Organization string `json:"organization"`
}
