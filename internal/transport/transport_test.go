package transport

import (
	"strings"
	"testing"
)

func TestMessageHasMedia(t *testing.T) {
	if (Message{Text: "hi"}).HasMedia() {
		t.Fatal("text message should not report media")
	}
	if !(Message{MediaData: []byte{1}, MediaMime: "image/png"}).HasMedia() {
		t.Fatal("message with bytes should report media")
	}
}

func TestQRDataURL(t *testing.T) {
	url, err := QRDataURL("2@abcdefg,hijklmn,opqrstu")
	if err != nil {
		t.Fatalf("render: %v", err)
	}
	if !strings.HasPrefix(url, "data:image/png;base64,") {
		t.Fatalf("unexpected prefix: %.40s", url)
	}
	if len(url) < 100 {
		t.Fatal("data url suspiciously short")
	}
}
