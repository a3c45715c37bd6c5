package services

import (
	"context"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"dailyChallengesAPI/internal/docstore"
	"dailyChallengesAPI/internal/types/challenge"
)

const sampleCatalog = `
[[templates]]
id = "cold_shower"
title = "Cold shower"
challenge = "Finish your shower with 30 seconds of cold water."
image = "https://img.example.com/cold.png"

[[templates]]
id = "walk"
title = "Take a walk"
challenge = "Walk for 20 minutes without your phone."
`

func TestCatalogImportAndList(t *testing.T) {
	store := docstore.NewMemoryStore()
	svc := NewCatalogService(store)
	ctx := context.Background()

	n, err := svc.Import(ctx, strings.NewReader(sampleCatalog))
	require.NoError(t, err)
	assert.Equal(t, 2, n)

	templates, err := svc.List(ctx)
	require.NoError(t, err)
	assert.Equal(t, []challenge.Template{
		{
			ID:            "cold_shower",
			Title:         "Cold shower",
			ChallengeText: "Finish your shower with 30 seconds of cold water.",
			ImageURL:      "https://img.example.com/cold.png",
		},
		{
			ID:            "walk",
			Title:         "Take a walk",
			ChallengeText: "Walk for 20 minutes without your phone.",
		},
	}, templates)
}

func TestParseCatalogRejectsBadInput(t *testing.T) {
	cases := map[string]string{
		"missing title": "[[templates]]\nid = \"a\"\n",
		"duplicate id":  "[[templates]]\nid = \"a\"\ntitle = \"A\"\n[[templates]]\nid = \"a\"\ntitle = \"B\"\n",
		"slash in id":   "[[templates]]\nid = \"a/b\"\ntitle = \"A\"\n",
		"dot id":        "[[templates]]\nid = \".\"\ntitle = \"A\"\n",
		"dot dot id":    "[[templates]]\nid = \"..\"\ntitle = \"A\"\n",
		"reserved id":   "[[templates]]\nid = \"__name__\"\ntitle = \"A\"\n",
		"oversized id":  "[[templates]]\nid = \"" + strings.Repeat("x", 1501) + "\"\ntitle = \"A\"\n",
		"unknown field": "[[templates]]\nid = \"a\"\ntitle = \"A\"\npoints = 5\n",
		"not toml":      "templates = [",
	}
	for name, input := range cases {
		t.Run(name, func(t *testing.T) {
			_, err := ParseCatalog(strings.NewReader(input))
			assert.Error(t, err)
		})
	}
}

func TestImportRejectsWholeFileOnBadID(t *testing.T) {
	store := docstore.NewMemoryStore()
	svc := NewCatalogService(store)
	input := sampleCatalog + "\n[[templates]]\nid = \"__reserved__\"\ntitle = \"Reserved\"\n"

	_, err := svc.Import(context.Background(), strings.NewReader(input))
	assert.ErrorIs(t, err, ErrInvalidInput)

	templates, err := svc.List(context.Background())
	require.NoError(t, err)
	assert.Empty(t, templates)
}

func TestParseCatalogAcceptsUnderscoreIDs(t *testing.T) {
	templates, err := ParseCatalog(strings.NewReader("[[templates]]\nid = \"__a\"\ntitle = \"A\"\n[[templates]]\nid = \"a.b\"\ntitle = \"B\"\n"))
	require.NoError(t, err)
	assert.Len(t, templates, 2)
}

func TestListEmptyCatalog(t *testing.T) {
	templates, err := NewCatalogService(docstore.NewMemoryStore()).List(context.Background())
	require.NoError(t, err)
	assert.NotNil(t, templates)
	assert.Empty(t, templates)
}
