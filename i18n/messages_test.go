package i18n

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestPrinterLanguages(t *testing.T) {
	tests := []struct {
		lang string
		key  string
		want string
	}{
		{"", "BBB_CV_ISI", "Is the signature intact?"},
		{"en", "BBB_CV_ISI_ANS", "The signature is not intact!"},
		{"fr", "BBB_CV_ISI_ANS", "La signature n'est pas intacte !"},
		{"fr-BE", "report.result", "Résultat"},
		{"de", "report.result", "Result"},
		{"not a tag", "report.result", "Result"},
		{"fr", "CUSTOM_RULE", "CUSTOM_RULE"},
	}
	for _, tt := range tests {
		t.Run(tt.lang+"/"+tt.key, func(t *testing.T) {
			assert.Equal(t, tt.want, NewPrinter(tt.lang).Text(tt.key))
		})
	}
}

func TestEveryQuestionHasAnswer(t *testing.T) {
	for _, e := range entries {
		key := e.key
		if strings.HasPrefix(key, "report.") || strings.HasSuffix(key, "_ANS") {
			continue
		}
		assert.True(t, Has(key+"_ANS"), "missing answer for %s", key)
	}
}
