// Copyright (c) 2025 Pagesmith Authors
// SPDX-License-Identifier: AGPL-3.0-or-later

package keystore

import (
	"context"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestStore(t *testing.T) *Store {
	t.Helper()
	store, err := OpenMemory("test-secret")
	require.NoError(t, err)
	t.Cleanup(func() { store.Close() })
	return store
}

func TestPutKeyAndList(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	rec, err := store.PutKey(ctx, "openai", "sk-test-123")
	require.NoError(t, err)
	assert.Equal(t, "openai", rec.Provider)
	assert.NotEmpty(t, rec.ID)
	assert.False(t, rec.Created.IsZero())

	records, err := store.Keys(ctx)
	require.NoError(t, err)
	require.Len(t, records, 1)
	assert.Equal(t, rec.ID, records[0].ID)
}

func TestPutKeyReplacesAndKeepsID(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	first, err := store.PutKey(ctx, "gemini", "old-key")
	require.NoError(t, err)

	second, err := store.PutKey(ctx, "gemini", "new-key")
	require.NoError(t, err)
	assert.Equal(t, first.ID, second.ID, "replacing a key must keep the record id")

	key, err := store.Key(ctx, "gemini")
	require.NoError(t, err)
	assert.Equal(t, "new-key", key)

	records, err := store.Keys(ctx)
	require.NoError(t, err)
	assert.Len(t, records, 1)
}

func TestKeyRoundTrip(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	_, err := store.PutKey(ctx, "anthropic", "sk-ant-secret")
	require.NoError(t, err)

	key, err := store.Key(ctx, "anthropic")
	require.NoError(t, err)
	assert.Equal(t, "sk-ant-secret", key)
}

func TestKeyMissing(t *testing.T) {
	store := newTestStore(t)

	_, err := store.Key(context.Background(), "cohere")
	assert.ErrorIs(t, err, ErrNoKey)
}

func TestKeyEncryptedAtRest(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	_, err := store.PutKey(ctx, "mistral", "sk-mst-plain")
	require.NoError(t, err)

	var sealed string
	err = store.db.QueryRowContext(ctx,
		`SELECT key_cipher FROM api_keys WHERE provider = 'mistral'`).Scan(&sealed)
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(sealed, EncryptedPrefix))
	assert.NotContains(t, sealed, "sk-mst-plain")
}

func TestPutKeyValidation(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	_, err := store.PutKey(ctx, "", "key")
	assert.ErrorIs(t, err, ErrInvalidRecord)

	_, err = store.PutKey(ctx, "openai", "")
	assert.ErrorIs(t, err, ErrInvalidRecord)
}

func TestDeleteKey(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	_, err := store.PutKey(ctx, "openai", "sk")
	require.NoError(t, err)
	require.NoError(t, store.DeleteKey(ctx, "openai"))

	_, err = store.Key(ctx, "openai")
	assert.ErrorIs(t, err, ErrNoKey)

	assert.NoError(t, store.DeleteKey(ctx, "openai"), "deleting a missing key is not an error")
}

func TestTemplates(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	saved, err := store.PutTemplate(ctx, Template{
		Name: "Landing Page",
		Code: "<h1>Hello</h1>",
		Tags: []string{"html", "starter"},
	})
	require.NoError(t, err)
	assert.NotEmpty(t, saved.ID)

	_, err = store.PutTemplate(ctx, Template{Name: "Blank", Code: "<div></div>"})
	require.NoError(t, err)

	templates, err := store.Templates(ctx)
	require.NoError(t, err)
	require.Len(t, templates, 2)
	assert.Equal(t, "Blank", templates[0].Name, "templates are ordered by name")
	assert.Equal(t, []string{"html", "starter"}, templates[1].Tags)
	assert.Equal(t, []string{}, templates[0].Tags, "tags default to an empty list")
}

func TestPutTemplateValidation(t *testing.T) {
	store := newTestStore(t)

	_, err := store.PutTemplate(context.Background(), Template{Name: "no code"})
	assert.ErrorIs(t, err, ErrInvalidRecord)
}

func TestCipherRoundTrip(t *testing.T) {
	salt, err := GenerateSalt()
	require.NoError(t, err)

	c, err := NewCipher("secret", salt)
	require.NoError(t, err)

	sealed, err := c.EncryptString("payload")
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(sealed, EncryptedPrefix))

	plain, err := c.DecryptString(sealed)
	require.NoError(t, err)
	assert.Equal(t, "payload", plain)

	again, err := c.EncryptString("payload")
	require.NoError(t, err)
	assert.NotEqual(t, sealed, again, "nonces must differ across calls")
}

func TestCipherRejectsTampering(t *testing.T) {
	salt, err := GenerateSalt()
	require.NoError(t, err)

	c, err := NewCipher("secret", salt)
	require.NoError(t, err)

	sealed, err := c.EncryptString("payload")
	require.NoError(t, err)

	_, err = c.DecryptString("not-encrypted")
	assert.ErrorIs(t, err, ErrInvalidCiphertext)

	otherSalt, err := GenerateSalt()
	require.NoError(t, err)
	other, err := NewCipher("secret", otherSalt)
	require.NoError(t, err)

	_, err = other.DecryptString(sealed)
	assert.ErrorIs(t, err, ErrDecryptionFailed)
}
