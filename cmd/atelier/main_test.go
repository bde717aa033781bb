package main

import (
	"bytes"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"
)

const (
	creatorHex = "c100000000000000000000000000000000000000000000000000000000000000"
	buyerHex   = "b000000000000000000000000000000000000000000000000000000000000000"
)

// newTestConfig writes a config file pointing at a fresh data directory.
func newTestConfig(t *testing.T) string {
	t.Helper()

	dir := t.TempDir()
	path := filepath.Join(dir, "atelier.yaml")
	body := "data_dir: " + filepath.Join(dir, "data") + "\nlog_level: error\n"

	require.NoError(t, os.WriteFile(path, []byte(body), 0o600))

	return path
}

// run executes one CLI invocation and returns its stdout.
func run(t *testing.T, cfg string, args ...string) (string, error) {
	t.Helper()

	var out bytes.Buffer
	cmd := newRootCmd(&out)
	cmd.SetArgs(append([]string{"--config", cfg}, args...))
	cmd.SetErr(&bytes.Buffer{})

	err := cmd.Execute()

	return out.String(), err
}

func decode[T any](t *testing.T, s string) T {
	t.Helper()

	var v T
	require.NoError(t, json.Unmarshal([]byte(s), &v), s)

	return v
}

// TestCLIFlow mints, lists and buys through separate invocations.
func TestCLIFlow(t *testing.T) {
	cfg := newTestConfig(t)

	out, err := run(t, cfg, "mint", "metadata", "--royalty", "41", "--creator", creatorHex)
	require.ErrorIs(t, err, errReported)
	failed := decode[failure](t, out)
	require.Equal(t, "InvalidRoyalty", failed.Error)
	require.Equal(t, "Royalties must be between 0% and 40%.", failed.Reason)

	out, err = run(t, cfg, "mint", "metadata", "--royalty", "20", "--creator", creatorHex)
	require.NoError(t, err)
	minted := decode[struct {
		ID     uint64 `json:"id"`
		Events []struct {
			Kind string `json:"kind"`
			Seq  uint64 `json:"seq"`
		} `json:"events"`
	}](t, out)
	require.Equal(t, uint64(1), minted.ID)
	require.Len(t, minted.Events, 2)
	require.Equal(t, "Transfer", minted.Events[0].Kind)
	require.Equal(t, "ItemMinted", minted.Events[1].Kind)

	out, err = run(t, cfg, "mint", "metadata", "--royalty", "30", "--creator", creatorHex)
	require.ErrorIs(t, err, errReported)
	require.Equal(t, "DuplicateFingerprint", decode[failure](t, out).Error)

	out, err = run(t, cfg, "count")
	require.NoError(t, err)
	require.Equal(t, uint64(1), decode[map[string]uint64](t, out)["items"])

	_, err = run(t, cfg, "list", "1", "--seller", creatorHex, "--price", "1000")
	require.NoError(t, err)

	out, err = run(t, cfg, "buy", "1", "--buyer", buyerHex, "--payment", "1000")
	require.NoError(t, err)
	bought := decode[struct {
		Settlement struct {
			RoyaltyAmount uint64 `json:"royaltyAmount"`
			SellerAmount  uint64 `json:"sellerAmount"`
		} `json:"settlement"`
	}](t, out)
	require.Equal(t, uint64(200), bought.Settlement.RoyaltyAmount)
	require.Equal(t, uint64(800), bought.Settlement.SellerAmount)

	out, err = run(t, cfg, "item", "1")
	require.NoError(t, err)
	item := decode[map[string]any](t, out)
	require.Equal(t, buyerHex, item["owner"])
	require.Equal(t, creatorHex, item["creator"])

	out, err = run(t, cfg, "credits", creatorHex)
	require.NoError(t, err)
	require.Equal(t, uint64(1000), decode[map[string]uint64](t, out)["credits"])

	out, err = run(t, cfg, "listing", "1")
	require.ErrorIs(t, err, errReported)
	require.Equal(t, "NotListed", decode[failure](t, out).Error)

	out, err = run(t, cfg, "events", "--from", "4", "--limit", "2")
	require.NoError(t, err)
	events := decode[[]map[string]any](t, out)
	require.Len(t, events, 2)
	require.Equal(t, "Transfer", events[0]["kind"])
	require.Equal(t, "SaleSettled", events[1]["kind"])

	out, err = run(t, cfg, "owned", buyerHex)
	require.NoError(t, err)
	require.Equal(t, []uint64{1}, decode[map[string][]uint64](t, out)["items"])
}

func TestCLIDigestAndInfo(t *testing.T) {
	cfg := newTestConfig(t)

	first, err := run(t, cfg, "digest")
	require.NoError(t, err)

	_, err = run(t, cfg, "buy", "1", "--buyer", buyerHex, "--payment", "5")
	require.ErrorIs(t, err, errReported)

	second, err := run(t, cfg, "digest")
	require.NoError(t, err)
	require.Equal(t, first, second, "rejected buy changed the digest")
	require.Len(t, decode[map[string]string](t, second)["digest"], 64)

	out, err := run(t, cfg, "info")
	require.NoError(t, err)
	info := decode[map[string]any](t, out)
	require.Equal(t, "NFTCollectible", info["name"])
	require.Equal(t, "NFTC", info["symbol"])
}

func TestCLIInputErrors(t *testing.T) {
	cfg := newTestConfig(t)

	_, err := run(t, cfg, "mint", "x", "--royalty", "5")
	require.Error(t, err)
	require.NotErrorIs(t, err, errReported)
	require.Contains(t, err.Error(), "creator is required")

	_, err = run(t, cfg, "mint", "x", "--creator", "zz")
	require.Error(t, err)
	require.True(t, strings.Contains(err.Error(), "invalid creator"))

	_, err = run(t, cfg, "item", "abc")
	require.Error(t, err)

	out, err := run(t, cfg, "item", "7")
	require.ErrorIs(t, err, errReported)
	require.Equal(t, "NotFound", decode[failure](t, out).Error)
}

func TestCLIInit(t *testing.T) {
	path := filepath.Join(t.TempDir(), "cfg", "atelier.yaml")

	var out bytes.Buffer
	cmd := newRootCmd(&out)
	cmd.SetArgs([]string{"init", path})
	require.NoError(t, cmd.Execute())
	require.FileExists(t, path)

	out.Reset()
	cmd = newRootCmd(&out)
	cmd.SetArgs([]string{"init", path})
	require.Error(t, cmd.Execute())

	got, err := run(t, path, "--data-dir", filepath.Join(t.TempDir(), "data"), "info")
	require.NoError(t, err)
	require.Equal(t, "NFTC", decode[map[string]any](t, got)["symbol"])
}
