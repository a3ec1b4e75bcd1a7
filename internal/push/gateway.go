package push

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/fleetpulse/fleetpulse/internal/domain"
)

// Gateway talks to the external delivery service that fans a message out to a
// user's registered devices.
type Gateway struct {
	URL    string
	Token  string
	Client *http.Client
}

func NewGateway(url, token string) *Gateway {
	if url == "" {
		return nil
	}
	return &Gateway{
		URL:    url,
		Token:  token,
		Client: &http.Client{Timeout: 10 * time.Second},
	}
}

type sendRequest struct {
	UserID  string  `json:"user_id"`
	UnitID  string  `json:"unit_id"`
	Message Message `json:"message"`
}

func (g *Gateway) Send(ctx context.Context, userID string, msg Message, unitID domain.UnitID) (Receipt, error) {
	if g == nil || g.URL == "" {
		return Receipt{}, errors.New("gateway disabled")
	}
	body, _ := json.Marshal(sendRequest{UserID: userID, UnitID: string(unitID), Message: msg})
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, g.URL, bytes.NewReader(body))
	if err != nil {
		return Receipt{}, err
	}
	req.Header.Set("Content-Type", "application/json")
	if g.Token != "" {
		req.Header.Set("Authorization", "Bearer "+g.Token)
	}

	resp, err := g.Client.Do(req)
	if err != nil {
		return Receipt{}, err
	}
	defer resp.Body.Close()
	if resp.StatusCode/100 != 2 {
		return Receipt{}, fmt.Errorf("gateway status %d", resp.StatusCode)
	}

	var rcpt Receipt
	if err := json.NewDecoder(resp.Body).Decode(&rcpt); err != nil {
		return Receipt{}, fmt.Errorf("gateway response: %w", err)
	}
	return rcpt, nil
}
