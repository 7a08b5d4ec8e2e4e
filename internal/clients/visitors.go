// internal/clients/visitors.go
package clients

import (
	"context"
	"net/http"
	"net/url"

	"mmss/internal/visitors"
)

// VisitorsClient reaches the visitor directory over HTTP. It satisfies
// loan.Visitors and tour.Visitors.
type VisitorsClient struct {
	c *client
}

func NewVisitorsClient(baseURL string, opts ...Option) *VisitorsClient {
	return &VisitorsClient{c: newClient("visitors", baseURL, opts...)}
}

func (c *VisitorsClient) GetVisitor(ctx context.Context, username string) (*visitors.Visitor, error) {
	var visitor visitors.Visitor
	if err := c.c.do(ctx, http.MethodGet, "/visitors/"+url.PathEscape(username), nil, &visitor); err != nil {
		return nil, err
	}
	return &visitor, nil
}
