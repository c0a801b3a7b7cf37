package domain

import "fmt"

// NotificationDraft — готовое к отправке письмо апруверу.
// Никогда не персистится: потребляется почтовым коллаборатором как есть.
type NotificationDraft struct {
	To         string `json:"to"`
	Subject    string `json:"subject"`
	Body       string `json:"body"`
	TaskID     string `json:"task_id"`
	ApproveURL string `json:"approve_url"`
	RejectURL  string `json:"reject_url"`
}

// RenderDraft собирает письмо со ссылками решения.
// Формат ссылок — контракт с decision-эндпоинтом: {base}/requests/{id}/decision?decision=...
func RenderDraft(baseURL, taskID, title, assessorEmail string) NotificationDraft {
	approveURL := fmt.Sprintf("%s/requests/%s/decision?decision=APPROVE", baseURL, taskID)
	rejectURL := fmt.Sprintf("%s/requests/%s/decision?decision=REJECT", baseURL, taskID)

	subject := fmt.Sprintf("Approval required: %s", title)
	body := fmt.Sprintf(
		"You have a pending approval task.\n\nTask ID: %s\nTitle: %s\n\nApprove: %s\nReject: %s\n",
		taskID, title, approveURL, rejectURL,
	)

	return NotificationDraft{
		To:         assessorEmail,
		Subject:    subject,
		Body:       body,
		TaskID:     taskID,
		ApproveURL: approveURL,
		RejectURL:  rejectURL,
	}
}
