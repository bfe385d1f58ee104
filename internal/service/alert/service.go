package alert

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"facewatch/internal/config"
	"facewatch/internal/dto"
)

const userAgent = "facewatch/1.0"

// Event describes one frame on which the unknown-person alert fired.
type Event struct {
	ID         string // Shared by every frame of the same unknown run
	Camera     string
	At         time.Time
	UnknownRun int
	Faces      []dto.FaceResult
	Image      []byte // Annotated JPEG
}

// Unknown counts the faces in the event that matched nobody.
func (e Event) Unknown() int {
	n := 0
	for _, f := range e.Faces {
		if !f.Known {
			n++
		}
	}
	return n
}

// Known lists the names of recognised faces in the event.
func (e Event) Known() []string {
	var names []string
	for _, f := range e.Faces {
		if f.Known {
			names = append(names, f.Name)
		}
	}
	return names
}

// Service defines the alert delivery surface.
type Service interface {
	NotifyUnknownPerson(ctx context.Context, event Event) error
	TestNotification(ctx context.Context) error
}

// NewService builds an ntfy-backed Service, or a no-op when no topic is configured.
func NewService(cfg *config.Config) Service {
	topic := strings.TrimSpace(cfg.NtfyTopic)
	if topic == "" {
		return noopService{}
	}

	timeout := time.Duration(cfg.NtfyRequestTimeout) * time.Second
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	return &ntfyService{
		endpoint: topic,
		client:   &http.Client{Timeout: timeout},
	}
}

type payload struct {
	title      string
	message    string
	tags       []string
	priority   string
	attachment []byte
	filename   string
}

type ntfyService struct {
	endpoint string
	client   *http.Client
}

func (n *ntfyService) NotifyUnknownPerson(ctx context.Context, event Event) error {
	message := fmt.Sprintf("Unknown person on %s (%d consecutive frames)", event.Camera, event.UnknownRun)
	if known := event.Known(); len(known) > 0 {
		message = fmt.Sprintf("%s\nAlso in view: %s", message, strings.Join(known, ", "))
	}

	data := payload{
		title:      "Facewatch - Unknown Person",
		message:    message,
		tags:       []string{"warning", "facewatch", "unknown"},
		priority:   "high",
		attachment: event.Image,
	}
	if len(event.Image) > 0 {
		data.filename = fmt.Sprintf("%s_%s.jpg", event.At.Format("20060102-150405"), event.ID)
	}
	return n.send(ctx, data)
}

func (n *ntfyService) TestNotification(ctx context.Context) error {
	data := payload{
		title:   "Facewatch - Test",
		message: "Test notification from facewatch",
		tags:    []string{"facewatch", "test"},
	}
	return n.send(ctx, data)
}

// send publishes a message. With an attachment the image is the PUT body and the
// message travels in a header, which is how ntfy accepts file uploads.
func (n *ntfyService) send(ctx context.Context, data payload) error {
	if n == nil || n.client == nil {
		return nil
	}

	method := http.MethodPost
	var body io.Reader = strings.NewReader(data.message)
	if len(data.attachment) > 0 {
		method = http.MethodPut
		body = bytes.NewReader(data.attachment)
	}

	req, err := http.NewRequestWithContext(ctx, method, n.endpoint, body)
	if err != nil {
		return fmt.Errorf("build ntfy request: %w", err)
	}
	req.Header.Set("User-Agent", userAgent)
	if len(data.attachment) > 0 {
		req.Header.Set("Filename", data.filename)
		req.Header.Set("Message", strings.ReplaceAll(data.message, "\n", "\\n"))
	} else {
		req.Header.Set("Content-Type", "text/plain; charset=utf-8")
	}
	if data.title != "" {
		req.Header.Set("Title", data.title)
	}
	if len(data.tags) > 0 {
		req.Header.Set("Tags", strings.Join(data.tags, ","))
	}
	if data.priority != "" && data.priority != "default" {
		req.Header.Set("Priority", data.priority)
	}

	resp, err := n.client.Do(req)
	if err != nil {
		return fmt.Errorf("send ntfy notification: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 300 {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 2048))
		return fmt.Errorf("ntfy returned %d: %s", resp.StatusCode, strings.TrimSpace(string(body)))
	}
	_, _ = io.Copy(io.Discard, resp.Body)
	return nil
}

type noopService struct{}

func (noopService) NotifyUnknownPerson(context.Context, Event) error { return nil }
func (noopService) TestNotification(context.Context) error           { return nil }
