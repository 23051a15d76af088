package services

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestExtractCaptionURL(t *testing.T) {
	tests := []struct {
		name    string
		html    string
		want    string
		wantErr bool
	}{
		{
			name: "prefers japanese track",
			html: `"captionTracks":[{"baseUrl":"https:\/\/www.youtube.com\/api\/timedtext?v=x&lang=en","languageCode":"en"},{"baseUrl":"https:\/\/www.youtube.com\/api\/timedtext?v=x&lang=ja","languageCode":"ja"}],"audioTracks"`,
			want: "https://www.youtube.com/api/timedtext?v=x&lang=ja",
		},
		{
			name: "falls back to english",
			html: `"captionTracks":[{"baseUrl":"https://a/vi","languageCode":"vi"},{"baseUrl":"https://a/en","languageCode":"en"}],"x"`,
			want: "https://a/en",
		},
		{
			name: "first track when no preferred language",
			html: `"captionTracks":[{"baseUrl":"https://a/ko","languageCode":"ko"}],"x"`,
			want: "https://a/ko",
		},
		{
			name:    "no captions",
			html:    `<html></html>`,
			wantErr: true,
		},
		{
			name:    "tracks without urls",
			html:    `"captionTracks":[{"languageCode":"ja"}],"x"`,
			wantErr: true,
		},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			got, err := extractCaptionURL(tc.html)
			if tc.wantErr {
				require.Error(t, err)
				return
			}
			require.NoError(t, err)
			require.Equal(t, tc.want, got)
		})
	}
}

func TestParseCaptionsXML(t *testing.T) {
	data := []byte(`<?xml version="1.0" encoding="utf-8"?><transcript>` +
		`<text start="0" dur="1">問題1</text>` +
		`<text start="1" dur="1">  </text>` +
		`<text start="2" dur="1">男の人と女の人が話しています。&amp;</text>` +
		`</transcript>`)

	lines, err := parseCaptionsXML(data)
	require.NoError(t, err)
	require.Equal(t, []string{"問題1", "男の人と女の人が話しています。&"}, lines)

	_, err = parseCaptionsXML([]byte(`<transcript></transcript>`))
	require.Error(t, err)
}
