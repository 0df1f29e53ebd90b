package ui

import (
	"strings"
	"testing"

	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/x/ansi"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestKeyValueBlock(t *testing.T) {
	out := KeyValueBlock("Vault", [][2]string{
		{"Address", "0x5FbDB2315678afecb367f032d93F642f64180aa3"},
		{"Balance", "1.5 ETH"},
		{"Owner", "0xf39Fd6e51aad88F6F4ce6aB8827279cffFb92266"},
	})

	assert.Contains(t, out, "Vault")
	assert.Contains(t, out, "1.5 ETH")
	assert.Contains(t, out, "╭")
	assert.Contains(t, out, "╰")

	addr := strings.Index(out, "Address")
	bal := strings.Index(out, "Balance")
	owner := strings.Index(out, "Owner")
	require.Greater(t, addr, -1)
	assert.Less(t, addr, bal)
	assert.Less(t, bal, owner)
}

func TestKeyValueBlockWithoutPairs(t *testing.T) {
	assert.Contains(t, KeyValueBlock("Wallet", nil), "Wallet")
	assert.Contains(t, KeyValueBlock("", [][2]string{{"Account", "0xabc"}}), "0xabc")
}

func TestNewTable(t *testing.T) {
	tbl := NewTable([]Column{{Title: "Name", Width: 10}, {Title: "Address", Width: 14}})
	assert.Len(t, tbl.Columns, 2)
	assert.Empty(t, tbl.Rows)
	assert.Equal(t, -1, tbl.SelIdx)

	tbl.AddRow(Row{"alice", "0xf39F...2266"})
	assert.Len(t, tbl.Rows, 1)
}

func TestTableRender(t *testing.T) {
	tbl := NewTable([]Column{
		{Title: "RPC", Width: 24},
		{Title: "Latency", Width: 10},
		{Title: "Status", Width: 8},
	})
	tbl.AddRow(Row{"https://rpc.sepolia.org", "120ms", "ok"})
	tbl.AddRow(Row{"https://sepolia.drpc.org", "-", "down"})
	tbl.SelIdx = 0

	out := tbl.Render()
	for _, s := range []string{"RPC", "Latency", "Status", "rpc.sepolia.org", "120ms", "down", "--------"} {
		assert.Contains(t, out, s)
	}
	assert.Less(t, strings.Index(out, "rpc.sepolia.org"), strings.Index(out, "sepolia.drpc.org"))
}

func TestTableRenderShortRow(t *testing.T) {
	tbl := NewTable([]Column{{Title: "Name", Width: 6}, {Title: "Network", Width: 8}})
	tbl.AddRow(Row{"alice"})
	assert.Contains(t, tbl.Render(), "alice")
}

func TestTableRenderStyledCellsAlign(t *testing.T) {
	tbl := NewTable([]Column{{Title: "Network", Width: 12}, {Title: "ID", Width: 8}})
	tbl.AddRow(Row{ChainName("sepolia"), "11155111"})
	tbl.AddRow(Row{"holesky", "17000"})

	lines := strings.Split(strings.TrimRight(tbl.Render(), "\n"), "\n")
	require.Len(t, lines, 4)
	assert.Equal(t, lipgloss.Width(lines[2]), lipgloss.Width(lines[3]), "styled cell padded on visible width")
}

func TestTableRenderTruncatesLongCells(t *testing.T) {
	tbl := NewTable([]Column{{Title: "Addr", Width: 6}})
	tbl.AddRow(Row{"0x1234567890"})
	out := tbl.Render()
	assert.Contains(t, out, "0x1234")
	assert.NotContains(t, out, "0x12345")
}

func TestTableRenderRightAligned(t *testing.T) {
	tbl := NewTable([]Column{{Title: "Latency", Width: 8, Right: true}})
	tbl.AddRow(Row{"95ms"})
	lines := strings.Split(strings.TrimRight(tbl.Render(), "\n"), "\n")
	require.Len(t, lines, 3)
	assert.Equal(t, "    95ms", ansi.Strip(lines[2]))
}

func TestKeyValueBlockKeysPaddedToLongest(t *testing.T) {
	out := ansi.Strip(KeyValueBlock("", [][2]string{{"Tx", "0x01"}, {"Vault balance", "2.0 ETH"}}))
	assert.Contains(t, out, "Tx:            0x01")
	assert.Contains(t, out, "Vault balance: 2.0 ETH")
}
