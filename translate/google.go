package translate

import (
	"context"
	"fmt"
	"html"
	"time"

	translate "cloud.google.com/go/translate/apiv3"
	"cloud.google.com/go/translate/apiv3/translatepb"
)

const remoteCallTimeout = 5 * time.Second

// GoogleTranslator performs the remote call against the Cloud Translation v3
// API. It is stateless and safe for concurrent use across rooms.
type GoogleTranslator struct {
	client    *translate.TranslationClient
	projectId string
}

func NewGoogleTranslator(ctx context.Context, projectId string) (*GoogleTranslator, error) {
	client, err := translate.NewTranslationClient(ctx)
	if err != nil {
		return nil, fmt.Errorf("could not create translation client: %w", err)
	}
	return &GoogleTranslator{client: client, projectId: projectId}, nil
}

func (g *GoogleTranslator) Translate(ctx context.Context, text, sourceLang, targetLang string) (string, error) {
	ctx, cancel := context.WithTimeout(ctx, remoteCallTimeout)
	defer cancel()
	req := &translatepb.TranslateTextRequest{
		Contents:           []string{text},
		MimeType:           "text/plain",
		SourceLanguageCode: sourceLang,
		TargetLanguageCode: targetLang,
		Parent:             fmt.Sprintf("projects/%s/locations/global", g.projectId),
	}
	resp, err := g.client.TranslateText(ctx, req)
	if err != nil {
		return "", err
	}
	if len(resp.Translations) == 0 {
		return "", fmt.Errorf("empty translation response")
	}
	return html.UnescapeString(resp.Translations[0].TranslatedText), nil
}

func (g *GoogleTranslator) Close() error {
	return g.client.Close()
}
