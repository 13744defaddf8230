package soap_test

import (
	"context"
	"encoding/base64"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/Ometra-Hela/Alize/internal/codec"
	"github.com/Ometra-Hela/Alize/internal/dal/repository"
	"github.com/Ometra-Hela/Alize/internal/model"
	"github.com/Ometra-Hela/Alize/internal/server/soap"
	"github.com/Ometra-Hela/Alize/internal/storage/attachments"
)

const (
	portID   = "RCP202503121315000042"
	userID   = "ABD01"
	password = "c2VjcmV0"
)

var fixedNow = time.Date(2025, 3, 12, 13, 15, 0, 0, time.UTC)

const portRequestAck = `<?xml version="1.0" encoding="UTF-8"?>
<NPCData xmlns="urn:npc:mx:np">
  <MessageHeader>
    <TransTimestamp>20250312131600</TransTimestamp>
    <Sender>ABD</Sender>
    <NumOfMessages>1</NumOfMessages>
  </MessageHeader>
  <NPCMessage>
    <PortRequestAckMsg>
      <PortID>RCP202503121315000042</PortID>
      <Timestamp>20250312131600</Timestamp>
    </PortRequestAckMsg>
  </NPCMessage>
</NPCData>`

const syncMessage = `<NPCData xmlns="urn:npc:mx:np"><MessageHeader><TransTimestamp>20250312131600</TransTimestamp>` +
	`<Sender>ABD</Sender><NumOfMessages>1</NumOfMessages></MessageHeader>` +
	`<NPCMessage><SyncMsg><PortID>RCP202503010900000001</PortID></SyncMsg></NPCMessage></NPCData>`

var pdf = []byte("%PDF-1.4\n1 0 obj\n<< /Type /Catalog >>\nendobj\ntrailer\n%%EOF\n")

type recordingDispatcher struct {
	mu       sync.Mutex
	err      error
	received []*codec.Parsed
}

func (d *recordingDispatcher) Dispatch(_ context.Context, msg *codec.Parsed) error {
	d.mu.Lock()
	defer d.mu.Unlock()

	d.received = append(d.received, msg)

	return d.err
}

type attachmentXML struct {
	name    string
	content string
}

func encoded(b []byte) string {
	return base64.StdEncoding.EncodeToString(b)
}

func envelope(user, pass, xmlMsg string, atts ...attachmentXML) string {
	var b strings.Builder

	b.WriteString(`<soapenv:Envelope xmlns:soapenv="http://schemas.xmlsoap.org/soap/envelope/" xmlns:np="urn:npc:mx:np">`)
	b.WriteString(`<soapenv:Header/><soapenv:Body><np:processNPCMsg>`)
	b.WriteString(`<userId>` + user + `</userId>`)
	b.WriteString(`<password>` + pass + `</password>`)
	b.WriteString(`<xmlMsg><![CDATA[` + xmlMsg + `]]></xmlMsg>`)

	for _, a := range atts {
		b.WriteString(`<attachment><filename>` + a.name + `</filename><mimeType>application/pdf</mimeType>`)
		b.WriteString(`<content>` + a.content + `</content></attachment>`)
	}

	b.WriteString(`</np:processNPCMsg></soapenv:Body></soapenv:Envelope>`)

	return b.String()
}

type fixture struct {
	server     *soap.Server
	store      *repository.MemoryStore
	blobs      *attachments.MemoryStore
	dispatcher *recordingDispatcher
}

func newFixture(t *testing.T, guard soap.GuardConfig) *fixture {
	t.Helper()

	f := &fixture{
		store:      repository.NewMemoryStore(),
		blobs:      attachments.NewMemoryStore(),
		dispatcher: &recordingDispatcher{},
	}

	server, err := soap.NewServer(
		soap.Config{UserID: userID, PasswordB64: password, Attachments: guard},
		codec.NewDefaultRegistry(),
		f.dispatcher,
		f.store,
		f.store,
		f.blobs,
		zap.NewNop(),
		soap.WithClock(func() time.Time { return fixedNow }),
	)
	require.NoError(t, err)

	f.server = server

	return f
}

func (f *fixture) post(body string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodPost, soap.Path, strings.NewReader(body))
	req.Header.Set("Content-Type", "text/xml; charset=utf-8")

	rec := httptest.NewRecorder()
	f.server.Handler().ServeHTTP(rec, req)

	return rec
}

func (f *fixture) messages(t *testing.T, id string) []*model.ProtocolMessage {
	t.Helper()

	msgs, err := f.store.ListByPortID(context.Background(), id)
	require.NoError(t, err)

	return msgs
}

func TestProcessNPCMsgAcknowledgesAndDispatches(t *testing.T) {
	f := newFixture(t, soap.GuardConfig{})

	rec := f.post(envelope(userID, password, portRequestAck, attachmentXML{name: "acta.pdf", content: encoded(pdf)}))

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, soap.AckText, rec.Body.String())
	assert.Contains(t, rec.Header().Get("Content-Type"), "text/plain")

	require.Len(t, f.dispatcher.received, 1)
	assert.Equal(t, model.MessageTypePortRequestAck, f.dispatcher.received[0].Type)

	msgs := f.messages(t, portID)
	require.Len(t, msgs, 1)
	assert.Equal(t, model.DirectionIn, msgs[0].Direction)
	assert.Equal(t, model.MessageTypePortRequestAck, msgs[0].TypeCode)
	assert.Equal(t, model.AckStatusSuccess, msgs[0].AckStatus)
	assert.Equal(t, "ABD", msgs[0].Sender)
	assert.Equal(t, portID, msgs[0].ParsedData["port_id"])
	assert.NotEmpty(t, msgs[0].IdempotencyKey)
	require.NotNil(t, msgs[0].ReceivedAt)
	assert.Equal(t, fixedNow, *msgs[0].ReceivedAt)

	indexed, err := f.store.ListAttachments(context.Background(), portID)
	require.NoError(t, err)
	require.Len(t, indexed, 1)
	assert.Equal(t, "acta.pdf", indexed[0].FileName)
	assert.Equal(t, "application/pdf", indexed[0].MimeType)
	assert.Equal(t, int64(len(pdf)), indexed[0].FileSize)
	assert.Equal(t, attachments.Key(portID, "acta.pdf", fixedNow), indexed[0].StorageKey)

	stored, err := f.blobs.Get(context.Background(), indexed[0].StorageKey)
	require.NoError(t, err)
	assert.Equal(t, pdf, stored)
}

func TestProcessNPCMsgAcceptsAlternateFieldNames(t *testing.T) {
	f := newFixture(t, soap.GuardConfig{})

	body := strings.NewReplacer(
		"<userId>", "<userID>", "</userId>", "</userID>",
		"<password>", "<passwordBase64>", "</password>", "</passwordBase64>",
	).Replace(envelope(userID, password, portRequestAck))

	rec := f.post(body)

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Len(t, f.dispatcher.received, 1)
}

func TestProcessNPCMsgRejectsBadCredentials(t *testing.T) {
	tests := []struct {
		name string
		user string
		pass string
	}{
		{name: "wrong password", user: userID, pass: "d3Jvbmc="},
		{name: "wrong user", user: "ABD02", pass: password},
		{name: "missing credentials", user: "", pass: ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newFixture(t, soap.GuardConfig{})

			rec := f.post(envelope(tt.user, tt.pass, portRequestAck))

			assert.Equal(t, http.StatusUnauthorized, rec.Code)
			assert.Contains(t, rec.Body.String(), "faultstring")
			assert.Contains(t, rec.Body.String(), "invalid credentials")
			assert.Empty(t, f.dispatcher.received)
			assert.Empty(t, f.messages(t, portID))
		})
	}
}

func TestProcessNPCMsgAttachmentGuard(t *testing.T) {
	pdfAttachment := attachmentXML{name: "acta.pdf", content: encoded(pdf)}

	tests := []struct {
		name  string
		guard soap.GuardConfig
		atts  []attachmentXML
		want  string
	}{
		{
			name:  "too many attachments",
			guard: soap.GuardConfig{MaxCount: 1},
			atts:  []attachmentXML{pdfAttachment, {name: "id.pdf", content: encoded(pdf)}},
			want:  "2 attachments, at most 1 allowed",
		},
		{
			name: "path in file name",
			atts: []attachmentXML{{name: "../acta.pdf", content: encoded(pdf)}},
			want: "invalid file name",
		},
		{
			name: "space in file name",
			atts: []attachmentXML{{name: "acta final.pdf", content: encoded(pdf)}},
			want: "invalid file name",
		},
		{
			name: "invalid base64",
			atts: []attachmentXML{{name: "acta.pdf", content: "@@not-base64@@"}},
			want: "not valid base64",
		},
		{
			name: "empty content",
			atts: []attachmentXML{{name: "acta.pdf", content: ""}},
			want: "content is empty",
		},
		{
			name:  "aggregate size",
			guard: soap.GuardConfig{MaxTotalBytes: 16},
			atts:  []attachmentXML{pdfAttachment},
			want:  "attachments exceed 16 bytes",
		},
		{
			name: "mime type not allowed",
			atts: []attachmentXML{{name: "notes.txt", content: encoded([]byte("plain notes for the case"))}},
			want: "is not allowed",
		},
		{
			name:  "rejection lists the allowed types in order",
			guard: soap.GuardConfig{AllowedMIME: []string{"image/png", "application/pdf"}},
			atts:  []attachmentXML{{name: "notes.txt", content: encoded([]byte("plain notes for the case"))}},
			want:  "expected one of application/pdf, image/png",
		},
		{
			name: "windows executable",
			atts: []attachmentXML{{name: "acta.pdf", content: encoded(append([]byte("MZ"), make([]byte, 64)...))}},
			want: "attachment 0",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newFixture(t, tt.guard)

			rec := f.post(envelope(userID, password, portRequestAck, tt.atts...))

			assert.Equal(t, http.StatusBadRequest, rec.Code)
			assert.Contains(t, rec.Body.String(), tt.want)
			assert.Contains(t, rec.Body.String(), "soapenv:Client")
			assert.Empty(t, f.dispatcher.received)
			assert.Empty(t, f.blobs.Keys())
			assert.Empty(t, f.messages(t, portID))
		})
	}
}

func TestProcessNPCMsgRejectsShellScriptsEvenWhenTextIsAllowed(t *testing.T) {
	f := newFixture(t, soap.GuardConfig{AllowedMIME: []string{"application/pdf", "text/plain"}})

	script := attachmentXML{name: "run.txt", content: encoded([]byte("#!/bin/sh\nrm -rf /tmp/case\n"))}
	rec := f.post(envelope(userID, password, portRequestAck, script))

	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Empty(t, f.blobs.Keys())
}

func TestProcessNPCMsgAcknowledgesUnsupportedBody(t *testing.T) {
	f := newFixture(t, soap.GuardConfig{})

	rec := f.post(envelope(userID, password, syncMessage))

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, soap.AckText, rec.Body.String())
	assert.Empty(t, f.dispatcher.received)

	msgs := f.messages(t, "RCP202503010900000001")
	require.Len(t, msgs, 1)
	assert.Equal(t, model.MessageType(0), msgs[0].TypeCode)
	assert.Equal(t, syncMessage, msgs[0].RawXML)
}

func TestProcessNPCMsgRejectsMalformedRequests(t *testing.T) {
	tests := []struct {
		name string
		body string
	}{
		{name: "not xml", body: "processNPCMsg please"},
		{name: "not an envelope", body: `<processNPCMsg><xmlMsg>x</xmlMsg></processNPCMsg>`},
		{name: "missing xmlMsg", body: strings.Replace(envelope(userID, password, ""), "<xmlMsg><![CDATA[]]></xmlMsg>", "", 1)},
		{name: "malformed inner message", body: envelope(userID, password, "<NPCData><unclosed>")},
		{name: "wrong root", body: envelope(userID, password, `<Other xmlns="urn:npc:mx:np"/>`)},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newFixture(t, soap.GuardConfig{})

			rec := f.post(tt.body)

			assert.Equal(t, http.StatusBadRequest, rec.Code)
			assert.Contains(t, rec.Body.String(), "Fault")
			assert.Empty(t, f.dispatcher.received)
		})
	}
}

func TestProcessNPCMsgReturnsServerFaultWhenDispatchFails(t *testing.T) {
	f := newFixture(t, soap.GuardConfig{})
	f.dispatcher.err = model.NewTransitionError(model.StateInitial, model.StatePorted)

	rec := f.post(envelope(userID, password, portRequestAck))

	assert.Equal(t, http.StatusInternalServerError, rec.Code)
	assert.Contains(t, rec.Body.String(), "soapenv:Server")
	assert.Contains(t, rec.Body.String(), "Invalid state transition.")

	msgs := f.messages(t, portID)
	require.Len(t, msgs, 1)
	assert.Equal(t, model.AckStatusError, msgs[0].AckStatus)
	assert.Contains(t, msgs[0].AckText, "Invalid state transition.")
	assert.NotEqual(t, soap.AckText, msgs[0].AckText)
}

func TestProcessNPCMsgRetriedDeliveryUpdatesTheSameRecord(t *testing.T) {
	f := newFixture(t, soap.GuardConfig{})
	f.dispatcher.err = errors.New("database unavailable")

	assert.Equal(t, http.StatusInternalServerError, f.post(envelope(userID, password, portRequestAck)).Code)

	failed := f.messages(t, portID)
	require.Len(t, failed, 1)
	assert.Equal(t, model.AckStatusError, failed[0].AckStatus)

	f.dispatcher.err = nil
	assert.Equal(t, http.StatusOK, f.post(envelope(userID, password, portRequestAck)).Code)

	msgs := f.messages(t, portID)
	require.Len(t, msgs, 1)
	assert.Equal(t, 1, msgs[0].RetryCount)
	assert.Equal(t, model.AckStatusSuccess, msgs[0].AckStatus)
	assert.Equal(t, soap.AckText, msgs[0].AckText)
	assert.Len(t, f.dispatcher.received, 2)
}

func TestNewServerRequiresCredentials(t *testing.T) {
	store := repository.NewMemoryStore()

	_, err := soap.NewServer(soap.Config{UserID: userID}, codec.NewDefaultRegistry(), &recordingDispatcher{},
		store, store, attachments.NewMemoryStore(), zap.NewNop())

	assert.ErrorIs(t, err, model.ErrConfiguration)
}
