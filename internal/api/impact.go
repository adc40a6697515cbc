package api

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/shopspring/decimal"
	"github.com/sony/gobreaker"
	"go.uber.org/zap"

	"github.com/juancollazo-ch/affiliate-reconciliation-service/internal/markets"
	"github.com/juancollazo-ch/affiliate-reconciliation-service/internal/models"
	"github.com/juancollazo-ch/affiliate-reconciliation-service/internal/ports"
)

const DefaultPageSize = 1000

// ImpactDirectory crea clientes de Impact por cuenta y comparte entre ellos
// el http.Client. Cada cuenta tiene su propio breaker.
type ImpactDirectory struct {
	http     *http.Client
	base     string
	pageSize int
	breaker  BreakerSettings

	mu       sync.Mutex
	breakers map[string]*gobreaker.CircuitBreaker
}

func NewImpactDirectory(base string, timeout time.Duration, pageSize int, bs BreakerSettings) (*ImpactDirectory, error) {
	if base == "" {
		return nil, errors.New("impact base url is required")
	}
	if pageSize <= 0 {
		pageSize = DefaultPageSize
	}
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	return &ImpactDirectory{
		http:     &http.Client{Timeout: timeout},
		base:     strings.TrimRight(base, "/"),
		pageSize: pageSize,
		breaker:  bs,
		breakers: make(map[string]*gobreaker.CircuitBreaker),
	}, nil
}

// ForAccount implementa ports.AffiliateDirectory.
func (d *ImpactDirectory) ForAccount(creds ports.Credentials) ports.AffiliateClient {
	return d.Client(creds)
}

// Client devuelve el cliente concreto de una cuenta.
func (d *ImpactDirectory) Client(creds ports.Credentials) *ImpactClient {
	d.mu.Lock()
	cb, ok := d.breakers[creds.AccountSID]
	if !ok {
		cb = newBreaker("impact-"+creds.AccountSID, d.breaker)
		d.breakers[creds.AccountSID] = cb
	}
	d.mu.Unlock()

	return &ImpactClient{
		http:     d.http,
		base:     d.base,
		sid:      creds.AccountSID,
		token:    creds.AuthToken,
		pageSize: d.pageSize,
		breaker:  cb,
	}
}

// ImpactClient habla con la API de acciones de Impact para una cuenta.
type ImpactClient struct {
	http     *http.Client
	base     string
	sid      string
	token    string
	pageSize int
	breaker  *gobreaker.CircuitBreaker
}

func (c *ImpactClient) actionsURL() string {
	return c.base + "/" + url.PathEscape(c.sid) + "/Actions"
}

func (c *ImpactClient) newRequest(ctx context.Context, method, target string, body string) (*http.Request, error) {
	var req *http.Request
	var err error
	if body == "" {
		req, err = http.NewRequestWithContext(ctx, method, target, nil)
	} else {
		req, err = http.NewRequestWithContext(ctx, method, target, strings.NewReader(body))
	}
	if err != nil {
		return nil, fmt.Errorf("error building request: %w", err)
	}
	req.SetBasicAuth(c.sid, c.token)
	req.Header.Set("Accept", "application/json")
	if body != "" {
		req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	}
	return req, nil
}

// ListActions trae todas las acciones de la campaña entre start y end (días
// locales del mercado, YYYY-MM-DD), página a página.
func (c *ImpactClient) ListActions(ctx context.Context, campaignID int64, market, startDate, endDate string) ([]models.AffiliateAction, error) {
	from, to, err := markets.DayBoundsUTC(market, startDate, endDate)
	if err != nil {
		return nil, err
	}

	logger := zap.L().With(zap.String("market", market), zap.Int64("campaign_id", campaignID))

	var all []models.AffiliateAction
	for page := 1; ; page++ {
		q := url.Values{}
		q.Set("ActionDateStart", from)
		q.Set("ActionDateEnd", to)
		q.Set("PageSize", strconv.Itoa(c.pageSize))
		q.Set("PageNumber", strconv.Itoa(page))
		q.Set("CampaignId", strconv.FormatInt(campaignID, 10))

		req, err := c.newRequest(ctx, http.MethodGet, c.actionsURL()+"?"+q.Encode(), "")
		if err != nil {
			return nil, err
		}

		raw, err := execute(c.breaker, c.http, req, "impact", "list_actions")
		if err != nil {
			return nil, fmt.Errorf("listing actions page %d: %w", page, err)
		}
		if raw.status != http.StatusOK {
			return nil, &StatusError{Code: raw.status, Body: string(raw.body)}
		}

		var p models.ActionsPage
		if err := json.Unmarshal(raw.body, &p); err != nil {
			return nil, fmt.Errorf("invalid JSON from Impact (page %d): %w", page, err)
		}
		all = append(all, p.Actions...)

		logger.Debug("actions page fetched", zap.Int("page", page), zap.Int("items", len(p.Actions)))

		if len(p.Actions) < c.pageSize {
			break
		}
	}

	logger.Info("actions fetched from Impact", zap.Int("total_actions", len(all)))
	return all, nil
}

// ReverseAction revierte la acción (DELETE /Actions).
func (c *ImpactClient) ReverseAction(ctx context.Context, actionID string, amount decimal.Decimal, reason string) (*models.ActionMutationResult, error) {
	return c.mutate(ctx, http.MethodDelete, "reverse_action", actionID, amount, reason)
}

// UpdateAction cambia el importe de la acción (PUT /Actions).
func (c *ImpactClient) UpdateAction(ctx context.Context, actionID string, amount decimal.Decimal, reason string) (*models.ActionMutationResult, error) {
	return c.mutate(ctx, http.MethodPut, "update_action", actionID, amount, reason)
}

func (c *ImpactClient) mutate(ctx context.Context, method, op, actionID string, amount decimal.Decimal, reason string) (*models.ActionMutationResult, error) {
	form := url.Values{}
	form.Set("ActionId", actionID)
	form.Set("Amount", amount.StringFixed(2))
	form.Set("Reason", reason)

	req, err := c.newRequest(ctx, method, c.actionsURL(), form.Encode())
	if err != nil {
		return nil, err
	}

	raw, err := execute(c.breaker, c.http, req, "impact", op)
	if err != nil {
		return nil, fmt.Errorf("%s %s: %w", op, actionID, err)
	}
	if raw.status != http.StatusOK && raw.status != http.StatusCreated {
		return nil, &StatusError{Code: raw.status, Body: string(raw.body)}
	}

	res := &models.ActionMutationResult{StatusCode: raw.status}
	if len(raw.body) > 0 {
		// El body sólo se guarda para el log; si no es JSON se ignora
		_ = json.Unmarshal(raw.body, &res.Body)
	}
	return res, nil
}
