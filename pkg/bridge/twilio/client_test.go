package twilio

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
)

func TestCreateCallSendsForm(t *testing.T) {
	t.Parallel()
	var gotPath, gotAuthUser string
	var gotForm map[string][]string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotPath = r.URL.Path
		gotAuthUser, _, _ = r.BasicAuth()
		r.ParseForm()
		gotForm = r.PostForm
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusCreated)
		w.Write([]byte(`{"sid":"CA123","status":"queued","to":"+15550001111","from":"+15550002222"}`))
	}))
	defer srv.Close()

	c := NewClient("AC999", "secret")
	c.BaseURL = srv.URL
	call, err := c.CreateCall(context.Background(), CreateCallParams{
		To:             "+15550001111",
		From:           "+15550002222",
		TwiML:          "<Response/>",
		StatusCallback: "https://bridge.example.com/call-status",
		StatusEvents:   []string{"completed"},
	})
	if err != nil {
		t.Fatalf("CreateCall: %v", err)
	}
	if call.SID != "CA123" || call.Status != "queued" {
		t.Errorf("call = %+v", call)
	}
	if gotPath != "/2010-04-01/Accounts/AC999/Calls.json" {
		t.Errorf("path = %q", gotPath)
	}
	if gotAuthUser != "AC999" {
		t.Errorf("basic auth user = %q", gotAuthUser)
	}
	for key, want := range map[string]string{
		"To":                  "+15550001111",
		"From":                "+15550002222",
		"Twiml":               "<Response/>",
		"StatusCallback":      "https://bridge.example.com/call-status",
		"StatusCallbackEvent": "completed",
	} {
		if got := gotForm[key]; len(got) != 1 || got[0] != want {
			t.Errorf("form[%s] = %v, want %q", key, got, want)
		}
	}
}

func TestSendSMS(t *testing.T) {
	t.Parallel()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if !strings.HasSuffix(r.URL.Path, "/Messages.json") {
			t.Errorf("path = %q", r.URL.Path)
		}
		r.ParseForm()
		if r.PostForm.Get("Body") != "hello from cupid" {
			t.Errorf("body = %q", r.PostForm.Get("Body"))
		}
		w.WriteHeader(http.StatusCreated)
		w.Write([]byte(`{"sid":"SM42","status":"queued"}`))
	}))
	defer srv.Close()

	c := NewClient("AC999", "secret")
	c.BaseURL = srv.URL
	msg, err := c.SendSMS(context.Background(), "+15550002222", "+15550001111", "hello from cupid")
	if err != nil {
		t.Fatalf("SendSMS: %v", err)
	}
	if msg.SID != "SM42" {
		t.Errorf("msg = %+v", msg)
	}
}

func TestAPIErrorDecoded(t *testing.T) {
	t.Parallel()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadRequest)
		w.Write([]byte(`{"status":400,"code":21211,"message":"Invalid 'To' phone number"}`))
	}))
	defer srv.Close()

	c := NewClient("AC999", "secret")
	c.BaseURL = srv.URL
	_, err := c.CreateCall(context.Background(), CreateCallParams{To: "bogus", From: "+1", TwiML: "<Response/>"})
	var apiErr *APIError
	if !errors.As(err, &apiErr) {
		t.Fatalf("err = %v, want *APIError", err)
	}
	if apiErr.Code != 21211 || apiErr.Status != 400 {
		t.Errorf("apiErr = %+v", apiErr)
	}
}

func TestStreamTwiMLEscapes(t *testing.T) {
	t.Parallel()
	got := StreamTwiML("wss://bridge.example.com/media-stream", `tok"with<chars>&`)
	for _, want := range []string{
		`<Pause length="1"/>`,
		`<Stream url="wss://bridge.example.com/media-stream">`,
		`<Parameter name="callId" value="tok&#34;with&lt;chars&gt;&amp;"/>`,
		"</Connect>",
	} {
		if !strings.Contains(got, want) {
			t.Errorf("TwiML missing %q:\n%s", want, got)
		}
	}
}

func TestDecodeStreamMessage(t *testing.T) {
	t.Parallel()
	raw := `{"event":"start","start":{"streamSid":"MZ1","callSid":"CA1","customParameters":{"callId":"tok-9"}}}`
	msg, err := DecodeStreamMessage([]byte(raw))
	if err != nil {
		t.Fatalf("DecodeStreamMessage: %v", err)
	}
	if msg.Event != "start" || msg.Start == nil {
		t.Fatalf("msg = %+v", msg)
	}
	if msg.Start.CustomParameters["callId"] != "tok-9" {
		t.Errorf("customParameters = %v", msg.Start.CustomParameters)
	}
}
