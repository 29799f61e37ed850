package google

import (
	"context"
	"fmt"
	"net/http"

	"google.golang.org/api/calendar/v3"
	"google.golang.org/api/gmail/v1"
	"google.golang.org/api/option"
)

// Services bundles the Google APIs the brief reads from.
type Services struct {
	Calendar *calendar.Service
	Gmail    *gmail.Service
}

// NewServices builds Calendar and Gmail services on an authorised client.
// Extra options (endpoint overrides) are applied to both.
func NewServices(ctx context.Context, client *http.Client, opts ...option.ClientOption) (*Services, error) {
	opts = append([]option.ClientOption{option.WithHTTPClient(client)}, opts...)

	cal, err := calendar.NewService(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("unable to create Calendar service: %w", err)
	}
	gm, err := gmail.NewService(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("unable to create Gmail service: %w", err)
	}
	return &Services{Calendar: cal, Gmail: gm}, nil
}
