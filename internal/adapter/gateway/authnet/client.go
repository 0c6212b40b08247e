// Package authnet talks to an Authorize.Net style card processor over its
// JSON transaction API.
package authnet

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"cardflow/config"
	"cardflow/internal/core/domain"
	"cardflow/internal/core/ports"
	"cardflow/pkg/apperror"

	"github.com/rs/zerolog"
)

const (
	txTypeAuthOnly         = "authOnlyTransaction"
	txTypeAuthCapture      = "authCaptureTransaction"
	txTypePriorAuthCapture = "priorAuthCaptureTransaction"
	txTypeRefund           = "refundTransaction"
	txTypeVoid             = "voidTransaction"

	responseCodeApproved = "1"
)

// Client is a ports.PaymentGateway backed by the processor's REST endpoint.
type Client struct {
	httpClient     *http.Client
	endpoint       string
	loginID        string
	transactionKey string
	log            zerolog.Logger
}

func NewClient(cfg config.GatewayConfig, log zerolog.Logger) *Client {
	return &Client{
		httpClient:     &http.Client{Timeout: cfg.Timeout},
		endpoint:       cfg.Endpoint,
		loginID:        cfg.APILoginID,
		transactionKey: cfg.TransactionKey,
		log:            log,
	}
}

var _ ports.PaymentGateway = (*Client)(nil)

type merchantAuthentication struct {
	Name           string `json:"name"`
	TransactionKey string `json:"transactionKey"`
}

type opaqueData struct {
	DataDescriptor string `json:"dataDescriptor"`
	DataValue      string `json:"dataValue"`
}

type creditCard struct {
	CardNumber     string `json:"cardNumber"`
	ExpirationDate string `json:"expirationDate"`
}

type payment struct {
	OpaqueData *opaqueData `json:"opaqueData,omitempty"`
	CreditCard *creditCard `json:"creditCard,omitempty"`
}

type orderRef struct {
	InvoiceNumber string `json:"invoiceNumber"`
}

type transactionRequest struct {
	TransactionType string    `json:"transactionType"`
	Amount          string    `json:"amount,omitempty"`
	CurrencyCode    string    `json:"currencyCode,omitempty"`
	Payment         *payment  `json:"payment,omitempty"`
	RefTransID      string    `json:"refTransId,omitempty"`
	Order           *orderRef `json:"order,omitempty"`
}

type createTransactionRequest struct {
	MerchantAuthentication merchantAuthentication `json:"merchantAuthentication"`
	TransactionRequest     transactionRequest     `json:"transactionRequest"`
}

type requestEnvelope struct {
	CreateTransactionRequest createTransactionRequest `json:"createTransactionRequest"`
}

type responseMessage struct {
	Code        string `json:"code"`
	Description string `json:"description,omitempty"`
	Text        string `json:"text,omitempty"`
}

type transactionResponse struct {
	ResponseCode string            `json:"responseCode"`
	TransID      string            `json:"transId"`
	Messages     []responseMessage `json:"messages"`
	Errors       []struct {
		ErrorCode string `json:"errorCode"`
		ErrorText string `json:"errorText"`
	} `json:"errors"`
}

type responseEnvelope struct {
	TransactionResponse transactionResponse `json:"transactionResponse"`
	Messages            struct {
		ResultCode string            `json:"resultCode"`
		Message    []responseMessage `json:"message"`
	} `json:"messages"`
}

func (c *Client) Authorize(ctx context.Context, amount domain.Money, paymentNonce, ref string) (*ports.GatewayResult, error) {
	return c.send(ctx, transactionRequest{
		TransactionType: txTypeAuthOnly,
		Amount:          amount.Amount.StringFixed(2),
		CurrencyCode:    amount.Currency,
		Payment:         noncePayment(paymentNonce),
		Order:           &orderRef{InvoiceNumber: ref},
	})
}

func (c *Client) Purchase(ctx context.Context, amount domain.Money, paymentNonce, ref string) (*ports.GatewayResult, error) {
	return c.send(ctx, transactionRequest{
		TransactionType: txTypeAuthCapture,
		Amount:          amount.Amount.StringFixed(2),
		CurrencyCode:    amount.Currency,
		Payment:         noncePayment(paymentNonce),
		Order:           &orderRef{InvoiceNumber: ref},
	})
}

func (c *Client) Capture(ctx context.Context, amount domain.Money, gatewayTransactionID string) (*ports.GatewayResult, error) {
	return c.send(ctx, transactionRequest{
		TransactionType: txTypePriorAuthCapture,
		Amount:          amount.Amount.StringFixed(2),
		RefTransID:      gatewayTransactionID,
	})
}

func (c *Client) Refund(ctx context.Context, amount domain.Money, gatewayTransactionID, cardLastFour string) (*ports.GatewayResult, error) {
	return c.send(ctx, transactionRequest{
		TransactionType: txTypeRefund,
		Amount:          amount.Amount.StringFixed(2),
		RefTransID:      gatewayTransactionID,
		Payment: &payment{CreditCard: &creditCard{
			CardNumber:     cardLastFour,
			ExpirationDate: "XXXX",
		}},
	})
}

func (c *Client) VoidTransaction(ctx context.Context, gatewayTransactionID string) (*ports.GatewayResult, error) {
	return c.send(ctx, transactionRequest{
		TransactionType: txTypeVoid,
		RefTransID:      gatewayTransactionID,
	})
}

func noncePayment(nonce string) *payment {
	return &payment{OpaqueData: &opaqueData{
		DataDescriptor: "COMMON.ACCEPT.INAPP.PAYMENT",
		DataValue:      nonce,
	}}
}

func (c *Client) send(ctx context.Context, txReq transactionRequest) (*ports.GatewayResult, error) {
	body, err := json.Marshal(requestEnvelope{
		CreateTransactionRequest: createTransactionRequest{
			MerchantAuthentication: merchantAuthentication{
				Name:           c.loginID,
				TransactionKey: c.transactionKey,
			},
			TransactionRequest: txReq,
		},
	})
	if err != nil {
		return nil, apperror.ErrGatewayError(err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.endpoint, bytes.NewReader(body))
	if err != nil {
		return nil, apperror.ErrGatewayError(err)
	}
	req.Header.Set("Content-Type", "application/json")

	start := time.Now()
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, apperror.ErrGatewayError(err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return nil, apperror.ErrGatewayError(err)
	}
	if resp.StatusCode != http.StatusOK {
		return nil, apperror.ErrGatewayError(fmt.Errorf("gateway returned HTTP %d", resp.StatusCode))
	}

	var envelope responseEnvelope
	if err := json.Unmarshal(raw, &envelope); err != nil {
		return nil, apperror.ErrGatewayError(fmt.Errorf("malformed gateway response: %w", err))
	}

	c.log.Debug().Str("transaction_type", txReq.TransactionType).
		Str("result_code", envelope.Messages.ResultCode).
		Dur("elapsed", time.Since(start)).Msg("gateway call finished")

	tr := envelope.TransactionResponse
	if envelope.Messages.ResultCode != "Ok" {
		if len(tr.Errors) > 0 {
			return nil, apperror.ErrGatewayDeclined(tr.Errors[0].ErrorCode, tr.Errors[0].ErrorText)
		}
		text := ""
		if len(envelope.Messages.Message) > 0 {
			text = envelope.Messages.Message[0].Text
		}
		return nil, apperror.ErrGatewayError(fmt.Errorf("gateway rejected request: %s", text))
	}
	if tr.ResponseCode != responseCodeApproved {
		message := ""
		if len(tr.Errors) > 0 {
			message = tr.Errors[0].ErrorText
		} else if len(tr.Messages) > 0 {
			message = tr.Messages[0].Description
		}
		return nil, apperror.ErrGatewayDeclined(tr.ResponseCode, message)
	}

	message := ""
	if len(tr.Messages) > 0 {
		message = tr.Messages[0].Description
	}
	return &ports.GatewayResult{
		TransactionID:   tr.TransID,
		ResponseCode:    tr.ResponseCode,
		ResponseMessage: message,
		ProcessedAt:     time.Now().UTC(),
	}, nil
}
