package audit

import (
	"context"
	"fmt"

	"github.com/sofratec/erp-app/internal/apiclient"
)

// Sender posts batches to the backend audit endpoint. The client must carry
// the audit service token (AUDIT_TOKEN); batches are posted outside any
// browser session so they survive logout and page navigation.
type Sender struct {
	api     *apiclient.Client
	version string
}

func NewSender(api *apiclient.Client, version string) *Sender {
	return &Sender{api: api, version: version}
}

func (s *Sender) PostBatch(ctx context.Context, events []Event) error {
	path := fmt.Sprintf("/%s/audit/events", s.version)
	return s.api.Post(ctx, path, map[string]any{"events": events}, nil)
}
