// internal/clients/collections.go
package clients

import (
	"context"
	"fmt"
	"net/http"

	"mmss/internal/collections"
)

// CollectionsClient reaches the artefact directory over HTTP. It satisfies
// loan.Artefacts.
type CollectionsClient struct {
	c *client
}

func NewCollectionsClient(baseURL string, opts ...Option) *CollectionsClient {
	return &CollectionsClient{c: newClient("collections", baseURL, opts...)}
}

func (c *CollectionsClient) GetArtefact(ctx context.Context, id int) (*collections.Artefact, error) {
	var artefact collections.Artefact
	if err := c.c.do(ctx, http.MethodGet, fmt.Sprintf("/artefacts/%d", id), nil, &artefact); err != nil {
		return nil, err
	}
	return &artefact, nil
}

func (c *CollectionsClient) SetActiveLoan(ctx context.Context, id int, loanID *int) error {
	req := struct {
		ActiveLoanID *int `json:"active_loan_id"`
	}{ActiveLoanID: loanID}
	return c.c.do(ctx, http.MethodPatch, fmt.Sprintf("/artefacts/%d/loan", id), req, nil)
}
