package rag

import (
	"context"
	"errors"
	"hash/fnv"
	"math"
	"path/filepath"
	"strings"
	"testing"
	"unicode"

	"fsi_kpi/pkg/core/kpi"
	"fsi_kpi/pkg/core/lineitem"
)

// wordEmbedder is a bag-of-words embedder: every word without digits
// increments one hashed dimension, so numbers never affect similarity.
type wordEmbedder struct{ calls int }

const dims = 1024

func (e *wordEmbedder) Embed(_ context.Context, texts []string) ([][]float32, error) {
	e.calls++
	out := make([][]float32, len(texts))
	for i, t := range texts {
		v := make([]float32, dims)
		for _, w := range strings.FieldsFunc(strings.ToLower(t), func(r rune) bool {
			return !unicode.IsLetter(r) && !unicode.IsDigit(r)
		}) {
			if strings.ContainsAny(w, "0123456789") {
				continue
			}
			h := fnv.New32a()
			h.Write([]byte(w))
			v[h.Sum32()%dims]++
		}
		out[i] = v
	}
	return out, nil
}

type stubPrompter struct {
	reply  string
	err    error
	task   string
	prompt string
}

func (s *stubPrompter) ExecutePrompt(_ context.Context, task, prompt, _ string, _ map[string]interface{}) (string, error) {
	s.task, s.prompt = task, prompt
	return s.reply, s.err
}

func row(item string, fy24, fy23 float64) lineitem.Row {
	return lineitem.Row{LineItem: item, Record: lineitem.Record{FY2024: lineitem.Number(fy24), FY2023: lineitem.Number(fy23)}}
}

func balanceSheetRows() []lineitem.Row {
	return []lineitem.Row{
		row(lineitem.TotalCurrentAssets, 1000, 900),
		row(lineitem.TotalCurrentLiabilities, 500, 450),
		row(lineitem.Inventories, 200, 150),
		row(lineitem.TotalLiabilities, 800, 700),
		row(lineitem.TotalEquity, 1200, 1100),
		row(lineitem.TotalAssets, 2000, 1800),
		row(lineitem.TradeReceivables, 300, 250),
	}
}

func ingested(t *testing.T, company string, statement lineitem.Statement, rows []lineitem.Row) (*MemoryIndex, *wordEmbedder) {
	t.Helper()
	idx, emb := NewMemoryIndex(), &wordEmbedder{}
	in := &Ingester{Embedder: emb, Index: idx, BatchSize: 3}
	n, err := in.Ingest(context.Background(), company, statement, rows)
	if err != nil {
		t.Fatalf("Ingest failed: %v", err)
	}
	if n != len(rows) {
		t.Fatalf("Ingest wrote %d chunks, want %d", n, len(rows))
	}
	return idx, emb
}

// =============================================================================
// CHUNKS
// =============================================================================

func TestParseChunk_PipeFormat(t *testing.T) {
	c, ok := ParseChunk("Infosys | balance_sheet | Total current assets | FY24 = 89,432.0, FY23 = 70881.0")
	if !ok {
		t.Fatal("expected chunk to parse")
	}
	if c.Company != "Infosys" || c.LineItem != "Total current assets" {
		t.Errorf("unexpected fields: %+v", c)
	}
	if f, _ := c.FY2024.Float64(); f != 89432 {
		t.Errorf("FY2024 = %v", f)
	}
	if f, _ := c.FY2023.Float64(); f != 70881 {
		t.Errorf("FY2023 = %v", f)
	}
}

func TestParseChunk_UnparsableNumberIsText(t *testing.T) {
	c, ok := ParseChunk("ITC | cash_flows | Dividends paid | FY24 = see note 12, FY23 = -100")
	if !ok {
		t.Fatal("expected chunk to parse")
	}
	if c.FY2024.IsNull() {
		t.Fatal("FY2024 should be kept as text")
	}
	if _, ok := c.FY2024.Float64(); ok {
		t.Error("FY2024 should not be numeric")
	}
	if f, _ := c.FY2023.Float64(); f != -100 {
		t.Errorf("FY2023 = %v", f)
	}
}

func TestParseChunk_FreeText(t *testing.T) {
	c, ok := ParseChunk("Revenue from operations FY2024: 1,53,670 and FY 2023: -1,234.5 crore")
	if !ok {
		t.Fatal("expected regex fallback to parse")
	}
	if f, _ := c.FY2024.Float64(); f != 153670 {
		t.Errorf("FY2024 = %v", f)
	}
	if f, _ := c.FY2023.Float64(); f != -1234.5 {
		t.Errorf("FY2023 = %v", f)
	}

	if _, ok := ParseChunk("Management discussion without figures"); ok {
		t.Error("plain prose should not parse")
	}
}

func TestFormatChunk_RoundTrip(t *testing.T) {
	r := lineitem.Row{LineItem: lineitem.TotalAssets, Record: lineitem.Record{FY2024: lineitem.Number(2000), FY2023: lineitem.Null}}
	text := FormatChunk("ACME", lineitem.BalanceSheet, r)
	if text != "ACME | balance_sheet | Total Assets | FY24 = 2000.0, FY23 = NA" {
		t.Errorf("FormatChunk = %q", text)
	}
	c, ok := ParseChunk(text)
	if !ok || !c.FY2023.IsNull() {
		t.Errorf("round trip lost the null: %+v", c)
	}
}

// =============================================================================
// INDEX
// =============================================================================

func TestMemoryIndex_SearchAndPersist(t *testing.T) {
	idx, emb := ingested(t, "ACME", lineitem.BalanceSheet, balanceSheetRows())
	if emb.calls != 3 {
		t.Errorf("expected 3 embedding batches, got %d", emb.calls)
	}

	q, _ := emb.Embed(context.Background(), []string{"ACME balance_sheet Total Assets"})
	hits, err := idx.Search(context.Background(), q[0], 2)
	if err != nil || len(hits) != 2 {
		t.Fatalf("Search = %d hits, %v", len(hits), err)
	}
	if !strings.Contains(hits[0].Text, "| Total Assets |") {
		t.Errorf("top hit = %q", hits[0].Text)
	}
	if math.Abs(hits[0].Score-1) > 1e-9 {
		t.Errorf("top score = %v, want 1", hits[0].Score)
	}

	path := filepath.Join(t.TempDir(), "index.json")
	if err := idx.Save(path); err != nil {
		t.Fatalf("Save failed: %v", err)
	}
	loaded, err := LoadMemoryIndex(path)
	if err != nil {
		t.Fatalf("LoadMemoryIndex failed: %v", err)
	}
	if loaded.Len() != idx.Len() {
		t.Errorf("loaded %d docs, want %d", loaded.Len(), idx.Len())
	}
}

func TestMemoryIndex_ReingestReplaces(t *testing.T) {
	idx, emb := ingested(t, "ACME", lineitem.BalanceSheet, balanceSheetRows())
	in := &Ingester{Embedder: emb, Index: idx}
	if _, err := in.Ingest(context.Background(), "ACME", lineitem.BalanceSheet, balanceSheetRows()[:2]); err != nil {
		t.Fatal(err)
	}
	if idx.Len() != len(balanceSheetRows()) {
		t.Errorf("re-ingest duplicated chunks: %d", idx.Len())
	}
}

func TestMMR_PrefersDiversity(t *testing.T) {
	a := Hit{Document: Document{ID: "a", Embedding: []float32{1, 0}}, Score: 0.99}
	aDup := Hit{Document: Document{ID: "a2", Embedding: []float32{1, 0.01}}, Score: 0.98}
	b := Hit{Document: Document{ID: "b", Embedding: []float32{0, 1}}, Score: 0.6}

	got := mmr([]Hit{a, aDup, b}, 2, 0.5)
	if len(got) != 2 || got[0].ID != "a" || got[1].ID != "b" {
		t.Errorf("mmr picked %v", []string{got[0].ID, got[1].ID})
	}
	if got := mmr([]Hit{a, aDup, b}, 2, 1); got[1].ID != "a2" {
		t.Errorf("lambda 1 should be pure relevance, got %s", got[1].ID)
	}
	if mmr(nil, 3, 0.5) != nil {
		t.Error("mmr of nothing should be nil")
	}
}

func TestCosine(t *testing.T) {
	if c := cosine([]float32{1, 0}, []float32{0, 1}); c != 0 {
		t.Errorf("orthogonal cosine = %v", c)
	}
	if c := cosine([]float32{1}, []float32{1, 2}); c != 0 {
		t.Errorf("mismatched cosine = %v", c)
	}
	if c := cosine([]float32{0, 0}, []float32{1, 2}); c != 0 {
		t.Errorf("zero vector cosine = %v", c)
	}
}

func TestVectorLiteral(t *testing.T) {
	lit := vectorLiteral([]float32{0.5, -1, 2.25})
	if lit != "[0.5,-1,2.25]" {
		t.Errorf("vectorLiteral = %q", lit)
	}
	v, err := parseVector(lit)
	if err != nil || len(v) != 3 || v[2] != 2.25 {
		t.Errorf("parseVector = %v, %v", v, err)
	}
	if _, err := parseVector("0.5,1"); err == nil {
		t.Error("expected malformed vector error")
	}
}

// =============================================================================
// RETRIEVER
// =============================================================================

func TestRetriever_FetchFeedsKPIs(t *testing.T) {
	idx, emb := ingested(t, "ACME", lineitem.BalanceSheet, balanceSheetRows())
	r := &Retriever{Embedder: emb, Index: idx}

	table, err := r.Fetch(context.Background(), "ACME", lineitem.BalanceSheet)
	if err != nil {
		t.Fatalf("Fetch failed: %v", err)
	}
	if len(table) != len(balanceSheetRows()) {
		t.Errorf("table has %d items, want %d", len(table), len(balanceSheetRows()))
	}

	res, err := kpi.BalanceSheetKPIs(table)
	if err != nil {
		t.Fatalf("BalanceSheetKPIs failed: %v", err)
	}
	m, _ := res.Lookup("current_ratio_2024")
	if v, _ := m.Value.Get(); v != 2 {
		t.Errorf("current_ratio_2024 = %v, want 2", v)
	}
}

func TestRetriever_OtherCompanyIsNotAHit(t *testing.T) {
	idx, emb := ingested(t, "Infosys", lineitem.BalanceSheet, balanceSheetRows())
	r := &Retriever{Embedder: emb, Index: idx}

	got, err := r.Lookup(context.Background(), "ITC", lineitem.BalanceSheet, lineitem.TotalAssets)
	if err != nil || got != nil {
		t.Errorf("Lookup = %+v, %v; want no hit", got, err)
	}
	got, err = r.Lookup(context.Background(), "Infosys Ltd", lineitem.BalanceSheet, lineitem.TotalAssets)
	if err != nil || got == nil || got.LineItem != lineitem.TotalAssets {
		t.Errorf("loose company match failed: %+v, %v", got, err)
	}
}

func TestRetriever_ExtractionFallback(t *testing.T) {
	emb := &wordEmbedder{}
	idx := NewMemoryIndex()
	texts := []string{"HCL annual report: dividends paid during the year were 1,200 crore against 900 crore"}
	vecs, _ := emb.Embed(context.Background(), texts)
	idx.Add(context.Background(), []Document{{ID: "p1", Text: texts[0], Embedding: vecs[0]}})

	p := &stubPrompter{reply: "```json\n{\"fy_2024\": \"1,200\", \"fy_2023\": 900}\n```"}
	r := &Retriever{Embedder: emb, Index: idx, Extractor: p}

	got, err := r.Lookup(context.Background(), "HCL", lineitem.CashFlows, lineitem.DividendsPaid)
	if err != nil || got == nil {
		t.Fatalf("Lookup = %+v, %v", got, err)
	}
	if p.task != "extraction" || !strings.Contains(p.prompt, "dividends paid") {
		t.Errorf("unexpected prompt for task %q: %q", p.task, p.prompt)
	}
	if f, _ := got.FY2024.Float64(); f != 1200 {
		t.Errorf("FY2024 = %v", f)
	}
	if f, _ := got.FY2023.Float64(); f != 900 {
		t.Errorf("FY2023 = %v", f)
	}

	p.reply = "I could not find it."
	if got, err := r.Lookup(context.Background(), "HCL", lineitem.CashFlows, lineitem.DividendsPaid); err != nil || got != nil {
		t.Errorf("unreadable extraction should be no hit, got %+v, %v", got, err)
	}

	p.err = errors.New("quota")
	if _, err := r.Lookup(context.Background(), "HCL", lineitem.CashFlows, lineitem.DividendsPaid); err == nil {
		t.Error("provider failure should surface")
	}
}

type failingEmbedder struct{}

func (failingEmbedder) Embed(context.Context, []string) ([][]float32, error) {
	return nil, errors.New("embedding quota exceeded")
}

func TestRetriever_FetchFailsOnEmbedderError(t *testing.T) {
	r := &Retriever{Embedder: failingEmbedder{}, Index: NewMemoryIndex()}
	if _, err := r.Fetch(context.Background(), "ACME", lineitem.ProfitAndLoss); err == nil {
		t.Error("expected error")
	}
	if _, err := r.Fetch(context.Background(), "ACME", lineitem.Statement("notes")); err == nil {
		t.Error("expected unknown statement error")
	}
}

// =============================================================================
// QA
// =============================================================================

func TestQA_Ask(t *testing.T) {
	idx, emb := ingested(t, "ACME", lineitem.BalanceSheet, balanceSheetRows())
	p := &stubPrompter{reply: "```markdown\nTotal assets were **2000.0** in FY2024.\n```"}
	qa := &QA{Embedder: emb, Index: idx, Prompter: p}

	ans, err := qa.Ask(context.Background(), "What were ACME total assets?")
	if err != nil {
		t.Fatalf("Ask failed: %v", err)
	}
	if p.task != "qa" {
		t.Errorf("task = %q", p.task)
	}
	if !strings.Contains(p.prompt, "financial analyst assistant") || !strings.Contains(p.prompt, "| Total Assets |") {
		t.Errorf("prompt missing context: %q", p.prompt)
	}
	if ans.Text != "Total assets were **2000.0** in FY2024." {
		t.Errorf("Text = %q", ans.Text)
	}
	if !strings.Contains(ans.HTML, "<strong>2000.0</strong>") {
		t.Errorf("HTML = %q", ans.HTML)
	}
	if len(ans.Sources) != len(balanceSheetRows()) {
		t.Errorf("expected every chunk as context (k=10), got %d", len(ans.Sources))
	}

	if _, err := qa.Ask(context.Background(), "   "); err == nil {
		t.Error("empty question should fail")
	}
}

// =============================================================================
// HTML INGESTION
// =============================================================================

const statementHTML = `<html><body>
<table>
  <tr><th>Particulars</th><th>Note</th><th>As at March 31, 2023</th><th>As at March 31, 2024</th></tr>
  <tr><td>Inventories</td><td>8</td><td>150</td><td>200</td></tr>
  <tr><td>Total current assets</td><td></td><td>900</td><td>1,000</td></tr>
  <tr><td>Assets</td><td></td><td></td><td></td></tr>
</table>
<table>
  <tr><td>Profit before tax</td><td>(1,234)</td><td>1,000</td></tr>
  <tr><td>Goodwill</td><td>42</td></tr>
</table>
</body></html>`

func TestParseStatementHTML(t *testing.T) {
	rows, err := ParseStatementHTML(strings.NewReader(statementHTML))
	if err != nil {
		t.Fatalf("ParseStatementHTML failed: %v", err)
	}
	table := lineitem.NewTable(rows)
	if len(table) != 4 {
		t.Fatalf("parsed %d items: %+v", len(table), rows)
	}

	checks := []struct {
		item       string
		fy24, fy23 float64
	}{
		{lineitem.Inventories, 200, 150},
		{lineitem.TotalCurrentAssets, 1000, 900},
		{lineitem.ProfitBeforeTax, -1234, 1000},
	}
	for _, c := range checks {
		v24, err := lineitem.Required(table, c.item, lineitem.FY2024)
		if err != nil || v24 != c.fy24 {
			t.Errorf("%s FY2024 = %v, %v; want %v", c.item, v24, err, c.fy24)
		}
		v23, err := lineitem.Required(table, c.item, lineitem.FY2023)
		if err != nil || v23 != c.fy23 {
			t.Errorf("%s FY2023 = %v, %v; want %v", c.item, v23, err, c.fy23)
		}
	}
	if _, err := lineitem.Required(table, "Goodwill", lineitem.FY2023); !errors.Is(err, lineitem.ErrInvalidValue) {
		t.Errorf("single-amount row should have null FY2023, got %v", err)
	}
}

func TestChunkID_Stable(t *testing.T) {
	a := ChunkID("ACME", lineitem.BalanceSheet, "Total Assets")
	b := ChunkID("acme", lineitem.BalanceSheet, "total assets")
	c := ChunkID("ACME", lineitem.ProfitAndLoss, "Total Assets")
	if a != b || a == c {
		t.Errorf("ChunkID not stable/scoped: %s %s %s", a, b, c)
	}
}
