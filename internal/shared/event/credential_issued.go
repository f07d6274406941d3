package event

const CredentialIssuedDestination string = "credential_issued"
const CredentialIssuedConsumerNotification string = "credential_issued_notification"

// CredentialIssuedMessage carries a freshly issued one-time code to the delivery side.
type CredentialIssuedMessage struct {
	CredentialID int64  `json:"credential_id,string"`
	SubjectID    int64  `json:"subject_id,string"`
	Email        string `json:"email"`
	Purpose      string `json:"purpose"`
	Code         string `json:"code"`
	ExpiresAt    int64  `json:"expires_at"`
}
