package extract

import (
	"bytes"
	"strings"
)

func looksLikePDF(body []byte) bool {
	return bytes.HasPrefix(bytes.TrimLeft(body, " \t\r\n"), []byte("%PDF-"))
}

var imageMagic = [][]byte{
	{0xFF, 0xD8, 0xFF},       // jpeg
	{0x89, 'P', 'N', 'G'},    // png
	{'G', 'I', 'F', '8'},     // gif
	{'R', 'I', 'F', 'F'},     // webp container
	{0x42, 0x4D},             // bmp
	{0x00, 0x00, 0x01, 0x00}, // ico
}

func looksLikeImage(body []byte) bool {
	for _, magic := range imageMagic {
		if bytes.HasPrefix(body, magic) {
			return true
		}
	}
	return false
}

func looksLikeHTML(body []byte) bool {
	head := bytes.ToLower(bytes.TrimSpace(body))
	if len(head) > 512 {
		head = head[:512]
	}
	return bytes.HasPrefix(head, []byte("<!doctype html")) ||
		bytes.HasPrefix(head, []byte("<html")) ||
		bytes.Contains(head, []byte("<head")) ||
		bytes.Contains(head, []byte("<body"))
}

// jsChallengeMarkers are phrases typical of bot-mitigation
// interstitials. Matching is on title plus a bounded text prefix.
var jsChallengeMarkers = []string{
	"just a moment",
	"checking your browser",
	"enable javascript and cookies",
	"needs to review the security of your connection",
	"verify you are a human",
	"attention required! | cloudflare",
	"ddos protection by",
	"captcha",
}

func looksLikeJSChallenge(title, text string) bool {
	probe := strings.ToLower(title) + "\n"
	lower := strings.ToLower(text)
	if len(lower) > 2000 {
		lower = lower[:2000]
	}
	probe += lower
	for _, marker := range jsChallengeMarkers {
		if strings.Contains(probe, marker) {
			return true
		}
	}
	return false
}
