package ad

import (
	"errors"
	"fmt"
	"testing"
)

func TestParseAspectRatio(t *testing.T) {
	tests := []struct {
		in      string
		want    AspectRatio
		wantErr bool
	}{
		{in: "", want: AspectSquare},
		{in: "1:1", want: AspectSquare},
		{in: " 16:9 ", want: AspectLandscape},
		{in: "9:16", want: AspectPortrait},
		{in: "Landscape", want: AspectLandscape},
		{in: "portrait", want: AspectPortrait},
		{in: "4:3", wantErr: true},
	}

	for _, tt := range tests {
		got, err := ParseAspectRatio(tt.in)
		if tt.wantErr {
			if err == nil {
				t.Errorf("ParseAspectRatio(%q) = %q, want error", tt.in, got)
			}
			continue
		}
		if err != nil || got != tt.want {
			t.Errorf("ParseAspectRatio(%q) = %q, %v; want %q", tt.in, got, err, tt.want)
		}
	}
}

func TestResultImage(t *testing.T) {
	r := Result{ID: "abc", ImageURL: DataURI("image/png", "Zm9v")}

	if r.ImageURL != "data:image/png;base64,Zm9v" {
		t.Fatalf("ImageURL = %q", r.ImageURL)
	}
	if r.MimeType() != "image/png" {
		t.Errorf("MimeType = %q", r.MimeType())
	}
	data, err := r.ImageBytes()
	if err != nil || string(data) != "foo" {
		t.Errorf("ImageBytes = %q, %v", data, err)
	}
	if r.Filename() != "samayan-ad-abc.png" {
		t.Errorf("Filename = %q", r.Filename())
	}

	jpeg := Result{ID: "xyz", ImageURL: DataURI("image/jpeg", "Zm9v")}
	if jpeg.Filename() != "samayan-ad-xyz.jpg" {
		t.Errorf("Filename = %q", jpeg.Filename())
	}

	if _, err := (Result{ImageURL: "https://example.com/a.png"}).ImageBytes(); err == nil {
		t.Error("ImageBytes accepted a non data uri")
	}
}

func TestUserMessage(t *testing.T) {
	if UserMessage(nil) != "" {
		t.Error("nil error has a message")
	}

	wrapped := fmt.Errorf("stage: %w", &Error{Kind: KindCopy, Message: MessageCopy, Err: errors.New("raw")})
	if got := UserMessage(wrapped); got != MessageCopy {
		t.Errorf("UserMessage = %q", got)
	}
	if got := UserMessage(errors.New("stack trace here")); got != MessageUnexpected {
		t.Errorf("UserMessage = %q", got)
	}
}

func TestStatusBusy(t *testing.T) {
	for status, want := range map[Status]bool{
		StatusIdle:            false,
		StatusGeneratingImage: true,
		StatusGeneratingCopy:  true,
		StatusSuccess:         false,
		StatusError:           false,
	} {
		if status.Busy() != want {
			t.Errorf("%q.Busy() = %v", status, !want)
		}
	}
}
