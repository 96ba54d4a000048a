// Package uomesdk is the client SDK for the UOMe protocol. Client is the
// plain transport against one authority; Member layers a key pair and the
// client-side verification steps on top of two Clients.
package uomesdk

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/aussiebroadwan/uome/pkg/cryptox"
	"github.com/aussiebroadwan/uome/pkg/httpx"
	"github.com/aussiebroadwan/uome/pkg/wire"
)

// Routes on the two authorities, by message kind.
var routes = map[wire.Kind]string{
	wire.KindRegisterGroup: "/v1/groups/register",
	wire.KindMainJoin:      "/v1/groups/join",
	wire.KindInvite:        "/v1/members/invite",
	wire.KindJoin:          "/v1/members/join",
	wire.KindConfirmJoin:   "/v1/members/confirm",
	wire.KindIssue:         "/v1/uomes/issue",
	wire.KindConfirm:       "/v1/uomes/confirm",
	wire.KindAccept:        "/v1/uomes/accept",
	wire.KindCancel:        "/v1/uomes/cancel",
	wire.KindPending:       "/v1/uomes/pending",
	wire.KindTotals:        "/v1/uomes/totals",
}

// Client posts protocol messages to one authority.
type Client struct {
	BaseURL    string
	HTTPClient *http.Client
}

func NewClient(baseURL string) *Client {
	return &Client{
		BaseURL:    baseURL,
		HTTPClient: &http.Client{Timeout: 30 * time.Second},
	}
}

func (c *Client) httpClient() *http.Client {
	if c.HTTPClient != nil {
		return c.HTTPClient
	}
	return http.DefaultClient
}

// Do sends one protocol message and decodes the typed response. Request
// values are validated against the schema before anything leaves the process.
func (c *Client) Do(ctx context.Context, kind wire.Kind, values wire.Values) (wire.Record, error) {
	rec, err := wire.Make(kind, wire.Request, values)
	if err != nil {
		return wire.Record{}, err
	}
	body, err := wire.Encode(rec)
	if err != nil {
		return wire.Record{}, err
	}

	path, ok := routes[kind]
	if !ok {
		return wire.Record{}, fmt.Errorf("uomesdk: no route for kind %q", kind)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.BaseURL+path, bytes.NewReader(body))
	if err != nil {
		return wire.Record{}, &TransportError{Err: err}
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient().Do(req)
	if err != nil {
		return wire.Record{}, &TransportError{Err: err}
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return wire.Record{}, &TransportError{Err: err}
	}

	if resp.StatusCode != http.StatusOK {
		var errResp httpx.ErrorResponse
		if err := json.Unmarshal(respBody, &errResp); err != nil || errResp.Error == "" {
			errResp.Error = http.StatusText(resp.StatusCode)
		}
		return wire.Record{}, &APIError{
			StatusCode:  resp.StatusCode,
			Code:        errResp.Error,
			Description: errResp.ErrorDescription,
		}
	}

	return wire.Decode(kind, wire.Response, respBody)
}

// RegisterGroup registers a group authority's key with the ledger. Used by
// the group authority itself, not by members.
func (c *Client) RegisterGroup(ctx context.Context, name string, key cryptox.Identity, groupSig []byte) (string, []byte, error) {
	rec, err := c.Do(ctx, wire.KindRegisterGroup, wire.Values{
		"group_name":      name,
		"group_key":       string(key),
		"group_signature": groupSig,
	})
	if err != nil {
		return "", nil, err
	}
	return rec.String("group_uuid"), rec.Bytes("main_signature"), nil
}

// MainJoin forwards a group authority's membership attestation to the ledger.
func (c *Client) MainJoin(ctx context.Context, groupUUID string, user cryptox.Identity, groupSig []byte) ([]byte, error) {
	rec, err := c.Do(ctx, wire.KindMainJoin, wire.Values{
		"group_uuid":      groupUUID,
		"user":            string(user),
		"group_signature": groupSig,
	})
	if err != nil {
		return nil, err
	}
	return rec.Bytes("main_signature"), nil
}
