package dependency

import (
	"sort"
	"testing"

	"github.com/felixgeelhaar/cacheflow/domain/cache"
)

var scope = cache.NewScope("org", "42")

func assertClosure(t *testing.T, entity EntityType, id string, want []string) {
	t.Helper()

	got, err := Default().Closure(scope, entity, id)
	if err != nil {
		t.Fatalf("Closure(%s) error: %v", entity, err)
	}
	sort.Strings(got)
	sort.Strings(want)
	if len(got) != len(want) {
		t.Fatalf("Closure(%s) = %v, want %v", entity, got, want)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("Closure(%s)[%d] = %s, want %s", entity, i, got[i], want[i])
		}
	}
}

// One closure test per registered entity type: the full tag set is part of
// the contract, not an implementation detail.

func TestClosure_Risk(t *testing.T) {
	t.Parallel()
	assertClosure(t, EntityRisk, "7", []string{
		"org:42:risk:7",
		"org:42:risk",
		"org:42:dashboard",
		"org:42:dashboard:metrics",
		"org:42:risk:summary",
	})
}

func TestClosure_Document(t *testing.T) {
	t.Parallel()
	assertClosure(t, EntityDocument, "99", []string{
		"org:42:document:99",
		"org:42:document",
		"org:42:dashboard",
		"org:42:document:recent",
	})
}

func TestClosure_Report(t *testing.T) {
	t.Parallel()
	assertClosure(t, EntityReport, "monthly-3", []string{
		"org:42:report:monthly-3",
		"org:42:report",
		"org:42:dashboard",
		"org:42:report:index",
	})
}

func TestClosure_Chat(t *testing.T) {
	t.Parallel()
	assertClosure(t, EntityChat, "thread-5", []string{
		"org:42:chat:thread-5",
		"org:42:chat",
		"org:42:chat:recent",
	})
}

func TestClosure_User(t *testing.T) {
	t.Parallel()
	assertClosure(t, EntityUser, "8", []string{
		"org:42:user:8",
		"org:42:user",
		"org:42:dashboard",
		"org:42:user:directory",
	})
}

func TestClosure_CoversEveryRegisteredType(t *testing.T) {
	t.Parallel()

	table := Default()
	tested := map[EntityType]bool{
		EntityRisk: true, EntityDocument: true, EntityReport: true,
		EntityChat: true, EntityUser: true,
	}
	for _, e := range table.EntityTypes() {
		if !tested[e] {
			t.Errorf("entity type %q registered but has no closure test", e)
		}
	}
}

func TestClosure_UnregisteredType(t *testing.T) {
	t.Parallel()

	if _, err := Default().Closure(scope, EntityType("widget"), "1"); err == nil {
		t.Fatal("Closure() expected error for unregistered entity type")
	}
}

func TestClosure_ScopesTags(t *testing.T) {
	t.Parallel()

	other := cache.NewScope("org", "43")
	a, err := Default().Closure(scope, EntityRisk, "7")
	if err != nil {
		t.Fatal(err)
	}
	b, err := Default().Closure(other, EntityRisk, "7")
	if err != nil {
		t.Fatal(err)
	}
	seen := make(map[string]bool, len(a))
	for _, tag := range a {
		seen[tag] = true
	}
	for _, tag := range b {
		if seen[tag] {
			t.Errorf("tag %q shared across tenants", tag)
		}
	}
}

func TestOwnTagAndListTag(t *testing.T) {
	t.Parallel()

	if got := OwnTag(scope, EntityRisk, "7"); got != "org:42:risk:7" {
		t.Errorf("OwnTag() = %s", got)
	}
	if got := ListTag(scope, EntityRisk); got != "org:42:risk" {
		t.Errorf("ListTag() = %s", got)
	}
}
