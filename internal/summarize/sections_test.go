package summarize

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestParseSections(t *testing.T) {
	tests := []struct {
		name string
		text string
		keys []string
		want Sections
	}{
		{
			name: "single inline value",
			text: "RU_TITLE: Заголовок",
			keys: []string{"RU_TITLE"},
			want: Sections{"RU_TITLE": "Заголовок"},
		},
		{
			name: "block value spanning lines",
			text: "EN_SUMMARY:\nFirst line.\nSecond line.",
			keys: []string{"EN_SUMMARY"},
			want: Sections{"EN_SUMMARY": "First line.\nSecond line."},
		},
		{
			name: "trailing text seeds the block",
			text: "EN_SUMMARY: Starts here\nand continues here.",
			keys: []string{"EN_SUMMARY"},
			want: Sections{"EN_SUMMARY": "Starts here\nand continues here."},
		},
		{
			name: "two tags split on tag lines",
			text: "RU_TITLE: Название\nRU_SUMMARY:\nПолный текст резюме.",
			keys: []string{"RU_TITLE", "RU_SUMMARY"},
			want: Sections{
				"RU_TITLE":   "Название",
				"RU_SUMMARY": "Полный текст резюме.",
			},
		},
		{
			name: "recurring tag keeps longest candidate",
			text: "EN_SUMMARY:\nshort\nEN_SUMMARY:\nthe much longer second candidate wins",
			keys: []string{"EN_SUMMARY"},
			want: Sections{"EN_SUMMARY": "the much longer second candidate wins"},
		},
		{
			name: "blank runs collapse to one empty line",
			text: "EN_SUMMARY:\npara one\n\n\n\npara two",
			keys: []string{"EN_SUMMARY"},
			want: Sections{"EN_SUMMARY": "para one\n\npara two"},
		},
		{
			name: "unknown tag lines stay inside the block",
			text: "EN_SUMMARY:\nBMI: 27 kg/m2 was the median.\nNEXT_FIELD: ignored tag",
			keys: []string{"EN_SUMMARY"},
			want: Sections{"EN_SUMMARY": "BMI: 27 kg/m2 was the median.\nNEXT_FIELD: ignored tag"},
		},
		{
			name: "missing tag is absent",
			text: "RU_TITLE: Только заголовок",
			keys: []string{"RU_TITLE", "RU_SUMMARY"},
			want: Sections{"RU_TITLE": "Только заголовок"},
		},
		{
			name: "empty input",
			text: "   \n ",
			keys: []string{"EN_SUMMARY"},
			want: Sections{},
		},
		{
			name: "windows line endings",
			text: "RU_TITLE: Название\r\nRU_SUMMARY:\r\nТекст.",
			keys: []string{"RU_TITLE", "RU_SUMMARY"},
			want: Sections{
				"RU_TITLE":   "Название",
				"RU_SUMMARY": "Текст.",
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, ParseSections(tt.text, tt.keys...))
		})
	}
}
