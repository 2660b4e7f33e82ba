// Package nist provides a client for the NIST HL7 v2 message validation
// SOAP service.
//
// The service validates one message against one profile OID and answers with
// an XML report listing assertions. Client sends the request and decodes the
// report; it does not interpret assertions.
package nist

import (
	"bytes"
	"context"
	"encoding/xml"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	nv "github.com/gofhir/nistvalidator"
)

const (
	// DefaultNamespace is the target namespace of the MessageValidationV2 service.
	DefaultNamespace = "http://messagevalidation.ws.hl7v2.healthcare.nist.gov/"

	// DefaultTimeout for HTTP requests.
	DefaultTimeout = 30 * time.Second

	soapEnvelopeNS = "http://schemas.xmlsoap.org/soap/envelope/"

	// maxResponseSize bounds the response body read from the service.
	maxResponseSize = 16 << 20
)

// Client is a MessageValidationV2 client. It is safe for concurrent use.
type Client struct {
	httpClient *http.Client
	url        string
	namespace  string
}

// ClientOption configures the Client.
type ClientOption func(*Client)

// WithHTTPClient sets a custom HTTP client.
func WithHTTPClient(client *http.Client) ClientOption {
	return func(c *Client) {
		c.httpClient = client
	}
}

// WithTimeout sets the HTTP timeout.
func WithTimeout(timeout time.Duration) ClientOption {
	return func(c *Client) {
		c.httpClient.Timeout = timeout
	}
}

// WithNamespace sets the service namespace used in requests.
func WithNamespace(ns string) ClientOption {
	return func(c *Client) {
		if ns != "" {
			c.namespace = ns
		}
	}
}

// NewClient creates a client for the service at url.
// An empty url selects the public NIST endpoint.
func NewClient(url string, opts ...ClientOption) *Client {
	if url == "" {
		url = nv.DefaultServiceURL
	}
	c := &Client{
		httpClient: &http.Client{
			Timeout: DefaultTimeout,
		},
		url:       url,
		namespace: DefaultNamespace,
	}

	for _, opt := range opts {
		opt(c)
	}

	return c
}

// URL returns the service endpoint.
func (c *Client) URL() string {
	return c.url
}

type requestEnvelope struct {
	XMLName xml.Name    `xml:"soapenv:Envelope"`
	SoapNS  string      `xml:"xmlns:soapenv,attr"`
	WSNS    string      `xml:"xmlns:ws,attr"`
	Body    requestBody `xml:"soapenv:Body"`
}

type requestBody struct {
	Validate validateRequest `xml:"ws:validate"`
}

// validateRequest carries the message, the profile OID and two parameters
// (rules, context) the service reserves; both are always sent empty.
type validateRequest struct {
	XML     string `xml:"xml"`
	OID     string `xml:"oid"`
	Rules   string `xml:"rules"`
	Context string `xml:"context"`
}

type responseEnvelope struct {
	Body struct {
		Fault *struct {
			Code   string `xml:"faultcode"`
			String string `xml:"faultstring"`
		} `xml:"Fault"`
		Response struct {
			Return struct {
				Text  string `xml:",chardata"`
				Inner string `xml:",innerxml"`
			} `xml:"return"`
		} `xml:"validateResponse"`
	} `xml:"Body"`
}

// Validate validates message against the profile identified by oid.
//
// Any failure to obtain a report is returned as a *nistvalidator.ServiceError;
// a nil error always comes with a non-nil report.
func (c *Client) Validate(ctx context.Context, message, oid string) (*Report, error) {
	const op = "nist.Client.Validate"

	doc, err := c.ValidateRaw(ctx, message, oid)
	if err != nil {
		return nil, err
	}

	report, err := ParseReport(doc)
	if err != nil {
		return nil, nv.NewServiceError(nv.ErrorFatal, op, 0, err)
	}
	return report, nil
}

// ValidateRaw sends the request and returns the report document unparsed.
func (c *Client) ValidateRaw(ctx context.Context, message, oid string) (string, error) {
	const op = "nist.Client.Validate"

	body, err := xml.Marshal(requestEnvelope{
		SoapNS: soapEnvelopeNS,
		WSNS:   c.namespace,
		Body: requestBody{Validate: validateRequest{
			XML: message,
			OID: oid,
		}},
	})
	if err != nil {
		return "", nv.NewServiceError(nv.ErrorInvalid, op, 0, fmt.Errorf("failed to encode request: %w", err))
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.url, bytes.NewReader(append([]byte(xml.Header), body...)))
	if err != nil {
		return "", nv.NewServiceError(nv.ErrorInvalid, op, 0, fmt.Errorf("failed to create request: %w", err))
	}
	req.Header.Set("Content-Type", "text/xml; charset=utf-8")
	req.Header.Set("SOAPAction", `""`)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return "", nv.NewServiceError(nv.ErrorTransient, op, 0, fmt.Errorf("%w: %w", nv.ErrServiceUnavailable, err))
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseSize))
	if err != nil {
		return "", nv.NewServiceError(nv.ErrorTransient, op, resp.StatusCode, fmt.Errorf("failed to read response: %w", err))
	}

	var env responseEnvelope
	decodeErr := xml.Unmarshal(data, &env)

	if decodeErr == nil && env.Body.Fault != nil {
		class := nv.ErrorFatal
		if strings.Contains(env.Body.Fault.Code, "Client") {
			class = nv.ErrorInvalid
		}
		return "", nv.NewServiceError(class, op, resp.StatusCode,
			fmt.Errorf("soap fault %s: %s", env.Body.Fault.Code, env.Body.Fault.String))
	}
	if resp.StatusCode != http.StatusOK {
		return "", nv.NewServiceError(nv.ClassifyStatus(resp.StatusCode), op, resp.StatusCode,
			fmt.Errorf("unexpected status %s", resp.Status))
	}
	if decodeErr != nil {
		return "", nv.NewServiceError(nv.ErrorFatal, op, resp.StatusCode,
			fmt.Errorf("%w: %v", nv.ErrMalformedReport, decodeErr))
	}

	// The report is normally escaped text; some deployments inline it.
	ret := env.Body.Response.Return
	if doc := strings.TrimSpace(ret.Text); strings.HasPrefix(doc, "<") {
		return doc, nil
	}
	if doc := strings.TrimSpace(ret.Inner); strings.HasPrefix(doc, "<") {
		return doc, nil
	}
	return "", nv.NewServiceError(nv.ErrorFatal, op, resp.StatusCode,
		fmt.Errorf("%w: response has no report", nv.ErrMalformedReport))
}
