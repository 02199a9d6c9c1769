package menu

import (
	"testing"

	"github.com/shopspring/decimal"

	"github.com/erichecan/AIrest/internal/domain"
)

func sampleItems() []domain.MenuItem {
	return []domain.MenuItem{
		{ID: "item_1", NameEN: "Fried Rice", NameZH: "蛋炒饭", Keywords: []string{"rice"}, Price: decimal.NewFromFloat(12.99), Available: true},
		{ID: "item_2", NameEN: "Kung Pao Chicken", NameZH: "宫保鸡丁", Keywords: []string{"chicken", "spicy"}, Price: decimal.NewFromFloat(15.50), Available: true},
		{ID: "item_3", NameEN: "Spring Rolls", NameZH: "春卷", Price: decimal.NewFromFloat(6.99), Available: true},
	}
}

func TestIndex_FindBestMatch_VerbatimInsideSentence(t *testing.T) {
	ix := NewIndex(sampleItems())

	item, score := ix.FindBestMatch("please pause the fried rice for today")
	if item == nil || item.ID != "item_1" {
		t.Fatalf("match = %+v", item)
	}
	if score != 1.0 {
		t.Fatalf("verbatim name should score 1.0, got %v", score)
	}
}

func TestIndex_FindBestMatch_CJK(t *testing.T) {
	ix := NewIndex(sampleItems())

	item, score := ix.FindBestMatch("把宫保鸡丁下架")
	if item == nil || item.ID != "item_2" {
		t.Fatalf("match = %+v (score %v)", item, score)
	}
	if score != 1.0 {
		t.Fatalf("CJK verbatim should score 1.0, got %v", score)
	}
}

func TestIndex_FindBestMatch_Keywords(t *testing.T) {
	ix := NewIndex(sampleItems())

	item, _ := ix.FindBestMatch("something spicy")
	if item == nil || item.ID != "item_2" {
		t.Fatalf("keyword match = %+v", item)
	}
}

func TestIndex_FindBestMatch_Typo(t *testing.T) {
	ix := NewIndex(sampleItems())

	// misspelled in both words so no field appears verbatim
	item, score := ix.FindBestMatch("freid ricce")
	if item == nil || item.ID != "item_1" {
		t.Fatalf("typo match = %+v", item)
	}
	if score >= 1.0 || score <= 0.5 {
		t.Fatalf("typo score out of expected band: %v", score)
	}
}

func TestIndex_FindBestMatch_KeywordVerbatimInTypoQuery(t *testing.T) {
	ix := NewIndex(sampleItems())

	// "rice" appears verbatim as a keyword, so the misspelled name still
	// scores a full match through the keyword field
	item, score := ix.FindBestMatch("freid rice")
	if item == nil || item.ID != "item_1" {
		t.Fatalf("match = %+v", item)
	}
	if score != 1.0 {
		t.Fatalf("verbatim keyword should score 1.0, got %v", score)
	}
}

func TestIndex_FindBestMatch_NothingClose(t *testing.T) {
	ix := NewIndex(sampleItems())

	_, score := ix.FindBestMatch("zzzzqqqq")
	if score > 0.5 {
		t.Fatalf("unrelated query scored too high: %v", score)
	}
}

func TestIndex_TopMatches_CutoffAndOrder(t *testing.T) {
	ix := NewIndex(sampleItems())

	ms := ix.TopMatches("rice", 3, 0.9)
	if len(ms) == 0 {
		t.Fatalf("expected at least one match")
	}
	if ms[0].Item.ID != "item_1" {
		t.Fatalf("best = %s", ms[0].Item.ID)
	}
	for i := 1; i < len(ms); i++ {
		if ms[i].Score > ms[i-1].Score {
			t.Fatalf("matches not sorted: %v", ms)
		}
	}

	// an impossible cutoff filters everything
	if ms := ix.TopMatches("rice", 3, 1.01); len(ms) != 0 {
		t.Fatalf("cutoff not applied: %v", ms)
	}

	// k bounds the result size
	if ms := ix.TopMatches("r", 1, 0.0); len(ms) > 1 {
		t.Fatalf("k not applied: %v", ms)
	}
}

func TestIndex_ItemByID(t *testing.T) {
	ix := NewIndex(sampleItems())

	item, ok := ix.ItemByID("item_3")
	if !ok || item.NameEN != "Spring Rolls" {
		t.Fatalf("ItemByID = %+v, %v", item, ok)
	}
	if _, ok := ix.ItemByID("nope"); ok {
		t.Fatalf("unknown id should miss")
	}
}

func TestIndex_EmptyAndDegenerate(t *testing.T) {
	empty := NewIndex(nil)
	if empty.Len() != 0 {
		t.Fatalf("empty index len = %d", empty.Len())
	}
	if item, _ := empty.FindBestMatch("anything"); item != nil {
		t.Fatalf("empty index matched %+v", item)
	}
	if ms := empty.TopMatches("", 3, 0); ms != nil {
		t.Fatalf("blank query should return nil")
	}

	// items with no searchable fields are skipped
	ix := NewIndex([]domain.MenuItem{{ID: "blank"}})
	if ix.Len() != 0 {
		t.Fatalf("fieldless item indexed")
	}
}
