package snswebhook

// Inner notification payload carried in a Notification envelope's Message
// field. Shapes follow the SES event publishing format; every field is
// optional and defensively zero-valued when absent.

type notificationPayload struct {
	NotificationType string        `json:"notificationType"`
	Bounce           bounceInfo    `json:"bounce"`
	Complaint        complaintInfo `json:"complaint"`
	Mail             mailInfo      `json:"mail"`
}

type bounceInfo struct {
	BounceType        string      `json:"bounceType"`
	BounceSubType     string      `json:"bounceSubType"`
	BouncedRecipients []recipient `json:"bouncedRecipients"`
}

type complaintInfo struct {
	ComplainedRecipients  []recipient `json:"complainedRecipients"`
	ComplaintFeedbackType string      `json:"complaintFeedbackType"`
}

type mailInfo struct {
	MessageID string `json:"messageId"`
	Source    string `json:"source"`
}

type recipient struct {
	EmailAddress   string `json:"emailAddress"`
	DiagnosticCode string `json:"diagnosticCode"`
}
