// Package soapenv implements the SOAP 1.1 envelope layer: locating the
// operation name from the Body's first child, typed marshal/unmarshal
// of operation parameters and responses, and SOAP Fault construction
// with sanitized, length-capped fault strings.
package soapenv

import (
	"bytes"
	"encoding/xml"
	"fmt"

	"github.com/onvifd/camera-onvif-daemon/internal/corr"
	"github.com/onvifd/camera-onvif-daemon/internal/onviferr"
)

const (
	soapNS = "http://www.w3.org/2003/05/soap-envelope"
)

// rawEnvelope is used only to locate the Body's first child element;
// handlers never see this type.
type rawEnvelope struct {
	XMLName xml.Name `xml:"Envelope"`
	Body    struct {
		Inner []byte `xml:",innerxml"`
	} `xml:"Body"`
}

// OperationName returns the local name of the SOAP Body's first child
// element, which is the ONVIF operation being invoked.
func OperationName(body []byte) (string, error) {
	var env rawEnvelope
	if err := xml.Unmarshal(body, &env); err != nil {
		return "", onviferr.Malformed("invalid SOAP envelope")
	}

	dec := xml.NewDecoder(bytes.NewReader(env.Body.Inner))
	for {
		tok, err := dec.Token()
		if err != nil {
			return "", onviferr.Malformed("SOAP body is empty or missing an operation element")
		}
		if start, ok := tok.(xml.StartElement); ok {
			return start.Name.Local, nil
		}
	}
}

// Decode unmarshals the SOAP Body's first child element into v.
func Decode(body []byte, v interface{}) error {
	var env rawEnvelope
	if err := xml.Unmarshal(body, &env); err != nil {
		return onviferr.Malformed("invalid SOAP envelope")
	}
	if err := xml.Unmarshal(env.Body.Inner, v); err != nil {
		return onviferr.Malformed(fmt.Sprintf("failed to decode operation parameters: %v", err))
	}
	return nil
}

// Encode wraps v in a SOAP envelope and marshals it to XML.
func Encode(v interface{}) ([]byte, error) {
	inner, err := xml.Marshal(v)
	if err != nil {
		return nil, fmt.Errorf("marshal response body: %w", err)
	}

	var out bytes.Buffer
	out.WriteString(xml.Header)
	out.WriteString(`<s:Envelope xmlns:s="` + soapNS + `">`)
	out.WriteString("<s:Body>")
	out.Write(inner)
	out.WriteString("</s:Body></s:Envelope>")
	return out.Bytes(), nil
}

// Fault is a SOAP 1.1 style fault payload.
type Fault struct {
	XMLName       xml.Name `xml:"s:Fault"`
	Code          string   `xml:"faultcode"`
	Reason        string   `xml:"faultstring"`
	CorrelationID string   `xml:"detail>CorrelationID,omitempty"`
}

// BuildFault converts a domain error into an envelope-wrapped SOAP
// Fault, choosing s:Sender for client-caused errors and s:Receiver
// otherwise, and stamping a correlation id on the fault detail.
func BuildFault(err error, correlationID string) []byte {
	if correlationID == "" {
		correlationID = corr.New()
	}

	code := "s:Receiver"
	msg := err.Error()
	if e := onviferr.As(err); e != nil {
		if e.SenderFault() {
			code = "s:Sender"
		}
		msg = e.Message
	}

	fault := Fault{
		Code:          code,
		Reason:        corr.SanitizeFault(msg),
		CorrelationID: correlationID,
	}

	inner, _ := xml.Marshal(fault)

	var out bytes.Buffer
	out.WriteString(xml.Header)
	out.WriteString(`<s:Envelope xmlns:s="` + soapNS + `">`)
	out.WriteString("<s:Body>")
	out.Write(inner)
	out.WriteString("</s:Body></s:Envelope>")
	return out.Bytes()
}
