package domain

import (
	"encoding/json"
	"testing"

	sqlite "github.com/glebarez/sqlite" // pure-Go SQLite (no CGO)
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

func newDomainDB(t *testing.T) *gorm.DB {
	t.Helper()
	db, err := gorm.Open(sqlite.Open("file:"+t.Name()+"?mode=memory&cache=shared"), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	if err != nil {
		t.Fatalf("open sqlite: %v", err)
	}
	return db
}

func TestTableNames(t *testing.T) {
	cases := map[string]string{
		(Intent{}).TableName():         "nl_intents",
		(ConfigSnapshot{}).TableName(): "config_snapshots",
		(ConfigChange{}).TableName():   "config_changes",
		(AuditLog{}).TableName():       "audit_logs",
		(MenuItem{}).TableName():       "menu_items",
		(Order{}).TableName():          "orders",
		(WebhookEvent{}).TableName():   "webhook_events",
	}
	for got, want := range cases {
		if got != want {
			t.Fatalf("TableName() = %q; want %q", got, want)
		}
	}
}

func TestMigrations_RoundTrip(t *testing.T) {
	db := newDomainDB(t)
	if err := db.AutoMigrate(&Intent{}, &ConfigSnapshot{}, &ConfigChange{}, &AuditLog{}, &MenuItem{}, &Order{}, &WebhookEvent{}); err != nil {
		t.Fatalf("automigrate: %v", err)
	}

	item := MenuItem{
		ID:           "item_1",
		RestaurantID: 1,
		NameEN:       "Fried Rice",
		NameZH:       "蛋炒饭",
		Keywords:     []string{"rice", "fried"},
		Price:        decimal.NewFromFloat(12.99),
		Available:    true,
	}
	if err := db.Create(&item).Error; err != nil {
		t.Fatalf("create menu item: %v", err)
	}

	var back MenuItem
	if err := db.First(&back, "id = ?", "item_1").Error; err != nil {
		t.Fatalf("load menu item: %v", err)
	}
	if len(back.Keywords) != 2 || back.Keywords[0] != "rice" {
		t.Fatalf("keywords round-trip broken: %#v", back.Keywords)
	}
	if !back.Price.Equal(decimal.NewFromFloat(12.99)) {
		t.Fatalf("price round-trip broken: %s", back.Price)
	}

	// snapshots serialize the full runtime config
	snap := ConfigSnapshot{
		TenantID:     "tenant_demo",
		RestaurantID: 1,
		Config:       DefaultRuntimeConfig("+14155550100"),
	}
	if err := db.Create(&snap).Error; err != nil {
		t.Fatalf("create snapshot: %v", err)
	}
	var snapBack ConfigSnapshot
	if err := db.First(&snapBack, "snapshot_id = ?", snap.SnapshotID).Error; err != nil {
		t.Fatalf("load snapshot: %v", err)
	}
	if snapBack.Config.HandoffPolicy.DefaultNumber != "+14155550100" {
		t.Fatalf("snapshot config round-trip broken: %+v", snapBack.Config.HandoffPolicy)
	}
}

func TestJSONText_ScanAndValue(t *testing.T) {
	var j JSONText
	if err := j.Scan(`{"a":1}`); err != nil {
		t.Fatalf("scan string: %v", err)
	}
	v, err := j.Value()
	if err != nil {
		t.Fatalf("value: %v", err)
	}
	if v.(string) != `{"a":1}` {
		t.Fatalf("value = %v", v)
	}

	// nil scans to an empty object
	var empty JSONText
	if err := empty.Scan(nil); err != nil {
		t.Fatalf("scan nil: %v", err)
	}
	if string(empty) != "{}" {
		t.Fatalf("nil scan = %q", string(empty))
	}

	// invalid JSON is rejected on write
	bad := JSONText("{not json")
	if _, err := bad.Value(); err == nil {
		t.Fatalf("expected error for invalid JSON")
	}
}

func TestRuntimeConfig_Clone_IsDeep(t *testing.T) {
	amount := decimal.NewFromInt(50)
	src := DefaultRuntimeConfig("+14155550100")
	src.TransferRules = []TransferRule{{
		RuleID:      "rule_1",
		Trigger:     "always",
		PhoneNumber: "+14155550101",
		Conditions:  RuleConditions{Language: "any", MinOrderAmount: &amount},
	}}
	avail := false
	src.MenuOverrides["item_1"] = MenuOverride{Available: &avail}
	src.RecommendationWeights["default"] = "push specials"

	dup := src.Clone()
	dup.TransferRules[0].PhoneNumber = "+19999999999"
	*dup.TransferRules[0].Conditions.MinOrderAmount = decimal.NewFromInt(75)
	*dup.MenuOverrides["item_1"].Available = true
	dup.RecommendationWeights["default"] = "changed"
	dup.BusinessHours.Days[0] = "xxx"

	if src.TransferRules[0].PhoneNumber != "+14155550101" {
		t.Fatalf("rule slice aliased")
	}
	if !src.TransferRules[0].Conditions.MinOrderAmount.Equal(decimal.NewFromInt(50)) {
		t.Fatalf("min order amount pointer aliased")
	}
	if *src.MenuOverrides["item_1"].Available != false {
		t.Fatalf("menu override pointer aliased")
	}
	if src.RecommendationWeights["default"] != "push specials" {
		t.Fatalf("weights map aliased")
	}
	if src.BusinessHours.Days[0] != "mon" {
		t.Fatalf("days slice aliased")
	}
}

func TestRuntimeConfig_JSONShape(t *testing.T) {
	cfg := DefaultRuntimeConfig("+14155550100")
	raw, err := json.Marshal(cfg)
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	var m map[string]any
	if err := json.Unmarshal(raw, &m); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	for _, key := range []string{"transfer_rules", "handoff_policy", "business_hours", "menu_overrides", "recommendation_weights"} {
		if _, ok := m[key]; !ok {
			t.Fatalf("missing %q in config JSON", key)
		}
	}
}
