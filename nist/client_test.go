package nist

import (
	"context"
	"encoding/xml"
	"errors"
	"html"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	nv "github.com/gofhir/nistvalidator"
)

const testMessage = "MSH|^~\\&|EHR|FAC|IIS|IIS|20200101||VXU^V04^VXU_V04|1|P|2.5.1|||ER|AL|||||Z22^CDCPHINVS\rPID|1||123^^^MR\r"

// capturedRequest holds the fields of a validate request seen by the fake service.
type capturedRequest struct {
	Body struct {
		Validate struct {
			XML     string  `xml:"xml"`
			OID     string  `xml:"oid"`
			Rules   *string `xml:"rules"`
			Context *string `xml:"context"`
		} `xml:"validate"`
	} `xml:"Body"`
}

func soapResponse(report string) string {
	return `<?xml version="1.0" encoding="UTF-8"?>
<soap:Envelope xmlns:soap="http://schemas.xmlsoap.org/soap/envelope/">
  <soap:Body>
    <ns2:validateResponse xmlns:ns2="` + DefaultNamespace + `">
      <return>` + html.EscapeString(report) + `</return>
    </ns2:validateResponse>
  </soap:Body>
</soap:Envelope>`
}

func TestClientValidate(t *testing.T) {
	var got capturedRequest
	var contentType string

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		contentType = r.Header.Get("Content-Type")
		body, _ := io.ReadAll(r.Body)
		if err := xml.Unmarshal(body, &got); err != nil {
			http.Error(w, err.Error(), http.StatusBadRequest)
			return
		}
		w.Header().Set("Content-Type", "text/xml")
		_, _ = io.WriteString(w, soapResponse(attributeReport))
	}))
	defer srv.Close()

	c := NewClient(srv.URL)
	report, err := c.Validate(context.Background(), testMessage, "1.2.3.4")
	require.NoError(t, err)
	require.NotNil(t, report)

	assert.Len(t, report.Assertions, 3)
	assert.Equal(t, "MSH[1]-9[1].3", report.Assertions[0].Path)

	assert.True(t, strings.HasPrefix(contentType, "text/xml"))
	assert.Equal(t, testMessage, got.Body.Validate.XML, "segment separators must survive encoding")
	assert.Equal(t, "1.2.3.4", got.Body.Validate.OID)
	require.NotNil(t, got.Body.Validate.Rules)
	require.NotNil(t, got.Body.Validate.Context)
	assert.Empty(t, *got.Body.Validate.Rules)
	assert.Empty(t, *got.Body.Validate.Context)
}

func TestClientValidateInlineReport(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		_, _ = io.WriteString(w, `<Envelope><Body><validateResponse><return>`+elementReport+`</return></validateResponse></Body></Envelope>`)
	}))
	defer srv.Close()

	report, err := NewClient(srv.URL).Validate(context.Background(), testMessage, "1")
	require.NoError(t, err)
	require.Len(t, report.Assertions, 1)
	assert.Equal(t, "RXA[1]-3[1]", report.Assertions[0].Path)
}

func TestClientValidateRaw(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		_, _ = io.WriteString(w, soapResponse(elementReport))
	}))
	defer srv.Close()

	doc, err := NewClient(srv.URL).ValidateRaw(context.Background(), testMessage, "1")
	require.NoError(t, err)
	assert.Equal(t, elementReport, doc)
}

func TestClientFaults(t *testing.T) {
	tests := []struct {
		name      string
		status    int
		body      string
		wantClass nv.ErrorClass
		wantIs    error
	}{
		{
			name:      "server error",
			status:    http.StatusInternalServerError,
			body:      "oops",
			wantClass: nv.ErrorTransient,
		},
		{
			name:      "not found",
			status:    http.StatusNotFound,
			body:      "",
			wantClass: nv.ErrorInvalid,
		},
		{
			name:   "soap client fault",
			status: http.StatusInternalServerError,
			body: `<soap:Envelope xmlns:soap="http://schemas.xmlsoap.org/soap/envelope/"><soap:Body>` +
				`<soap:Fault><faultcode>soap:Client</faultcode><faultstring>Unknown OID</faultstring></soap:Fault>` +
				`</soap:Body></soap:Envelope>`,
			wantClass: nv.ErrorInvalid,
		},
		{
			name:   "soap server fault",
			status: http.StatusInternalServerError,
			body: `<soap:Envelope xmlns:soap="http://schemas.xmlsoap.org/soap/envelope/"><soap:Body>` +
				`<soap:Fault><faultcode>soap:Server</faultcode><faultstring>NPE</faultstring></soap:Fault>` +
				`</soap:Body></soap:Envelope>`,
			wantClass: nv.ErrorFatal,
		},
		{
			name:      "not xml",
			status:    http.StatusOK,
			body:      "<html",
			wantClass: nv.ErrorFatal,
			wantIs:    nv.ErrMalformedReport,
		},
		{
			name:      "empty return",
			status:    http.StatusOK,
			body:      soapResponse(""),
			wantClass: nv.ErrorFatal,
			wantIs:    nv.ErrMalformedReport,
		},
		{
			name:      "report not xml",
			status:    http.StatusOK,
			body:      soapResponse("<<<"),
			wantClass: nv.ErrorFatal,
			wantIs:    nv.ErrMalformedReport,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
				w.WriteHeader(tt.status)
				_, _ = io.WriteString(w, tt.body)
			}))
			defer srv.Close()

			report, err := NewClient(srv.URL).Validate(context.Background(), testMessage, "1")
			require.Error(t, err)
			assert.Nil(t, report)
			assert.True(t, nv.IsServiceFault(err))

			var se *nv.ServiceError
			require.True(t, errors.As(err, &se))
			assert.Equal(t, tt.wantClass, se.Class)
			if tt.wantIs != nil {
				assert.ErrorIs(t, err, tt.wantIs)
			}
		})
	}
}

func TestClientUnreachable(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(http.ResponseWriter, *http.Request) {}))
	url := srv.URL
	srv.Close()

	_, err := NewClient(url).Validate(context.Background(), testMessage, "1")
	require.Error(t, err)
	assert.ErrorIs(t, err, nv.ErrServiceUnavailable)
	assert.True(t, nv.IsTransient(err))
}

func TestClientTimeout(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		select {
		case <-r.Context().Done():
		case <-time.After(2 * time.Second):
		}
	}))
	defer srv.Close()

	_, err := NewClient(srv.URL, WithTimeout(50*time.Millisecond)).Validate(context.Background(), testMessage, "1")
	require.Error(t, err)
	assert.True(t, nv.IsServiceFault(err))
	assert.True(t, nv.IsTransient(err))
}

func TestClientContextCanceled(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		_, _ = io.WriteString(w, soapResponse(elementReport))
	}))
	defer srv.Close()

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := NewClient(srv.URL).Validate(ctx, testMessage, "1")
	require.Error(t, err)
	assert.ErrorIs(t, err, context.Canceled)
}

func TestNewClientDefaults(t *testing.T) {
	c := NewClient("")
	assert.Equal(t, nv.DefaultServiceURL, c.URL())
	assert.Equal(t, DefaultNamespace, c.namespace)
	assert.Equal(t, DefaultTimeout, c.httpClient.Timeout)

	custom := &http.Client{}
	c = NewClient("http://x", WithHTTPClient(custom), WithNamespace("urn:test"), WithNamespace(""))
	assert.Same(t, custom, c.httpClient)
	assert.Equal(t, "urn:test", c.namespace)
}
