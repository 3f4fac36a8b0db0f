package nouns

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const inventoryJSON = `{
  "domain": "inventory",
  "description": "Warehouse stock",
  "entities": [
    {
      "name": "item",
      "description": "A stocked product",
      "properties": [
        {"name": "sku", "type": "string", "required": true},
        {"name": "quantity", "type": "integer"}
      ],
      "actions": ["restock", "reserve"],
      "events": ["item.depleted"]
    }
  ]
}`

const billingJSON = `{
  "domain": "billing",
  "entities": [
    {"name": "invoice", "actions": ["issue", "void"]}
  ]
}`

func writeFile(t *testing.T, dir, name, content string) {
	t.Helper()
	require.NoError(t, os.WriteFile(filepath.Join(dir, name), []byte(content), 0644))
}

func TestCatalog_Load(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, "inventory.json", inventoryJSON)
	writeFile(t, dir, "billing.json", billingJSON)

	c := NewCatalog(dir)
	require.NoError(t, c.Load())

	assert.Equal(t, 2, c.Count())
	assert.Equal(t, []string{"billing", "inventory"}, c.Domains())

	d, ok := c.Get("inventory")
	require.True(t, ok)
	assert.Equal(t, "Warehouse stock", d.Description)
	require.Len(t, d.Entities, 1)
	assert.Equal(t, "item", d.Entities[0].Name)
	assert.Equal(t, []string{"restock", "reserve"}, d.Entities[0].Actions)
	assert.Equal(t, []string{"item.depleted"}, d.Entities[0].Events)
}

func TestCatalog_Entity(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, "inventory.json", inventoryJSON)

	c := NewCatalog(dir)
	require.NoError(t, c.Load())

	e, ok := c.Entity("inventory", "item")
	require.True(t, ok)
	require.Len(t, e.Properties, 2)
	assert.Equal(t, "sku", e.Properties[0].Name)
	assert.Equal(t, "string", e.Properties[0].Type)
	assert.True(t, e.Properties[0].Required)

	_, ok = c.Entity("inventory", "warehouse")
	assert.False(t, ok)

	_, ok = c.Entity("shipping", "parcel")
	assert.False(t, ok)
}

func TestCatalog_Load_IgnoresOtherFiles(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, "inventory.json", inventoryJSON)
	writeFile(t, dir, "notes.md", "# not a catalog file")
	require.NoError(t, os.MkdirAll(filepath.Join(dir, "archive"), 0755))

	c := NewCatalog(dir)
	require.NoError(t, c.Load())

	assert.Equal(t, 1, c.Count())
}

func TestCatalog_Load_MalformedKeepsPrevious(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, "inventory.json", inventoryJSON)

	c := NewCatalog(dir)
	require.NoError(t, c.Load())

	writeFile(t, dir, "inventory.json", `{"domain": "inventory",`)

	err := c.Load()
	require.Error(t, err)

	d, ok := c.Get("inventory")
	require.True(t, ok, "previous catalog should survive a failed load")
	assert.Equal(t, "Warehouse stock", d.Description)
}

func TestCatalog_Load_MissingDomainName(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, "broken.json", `{"entities": []}`)

	c := NewCatalog(dir)
	err := c.Load()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "missing domain name")
}

func TestCatalog_Load_DuplicateDomain(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, "a.json", billingJSON)
	writeFile(t, dir, "b.json", billingJSON)

	c := NewCatalog(dir)
	err := c.Load()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "duplicate domain")
}

func TestCatalog_Load_MissingDir(t *testing.T) {
	c := NewCatalog(filepath.Join(t.TempDir(), "absent"))
	assert.Error(t, c.Load())
}

func TestCatalog_Load_EmptyDir(t *testing.T) {
	c := NewCatalog(t.TempDir())
	require.NoError(t, c.Load())

	assert.Equal(t, 0, c.Count())
	assert.Empty(t, c.Domains())
	assert.Empty(t, c.List())
}

func TestCatalog_Get_Unknown(t *testing.T) {
	c := NewCatalog(t.TempDir())
	require.NoError(t, c.Load())

	_, ok := c.Get("inventory")
	assert.False(t, ok)
}

func TestCatalog_List_SortedByDomain(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, "inventory.json", inventoryJSON)
	writeFile(t, dir, "billing.json", billingJSON)

	c := NewCatalog(dir)
	require.NoError(t, c.Load())

	list := c.List()
	require.Len(t, list, 2)
	assert.Equal(t, "billing", list[0].Domain)
	assert.Equal(t, "inventory", list[1].Domain)
}

func TestCatalog_Reload_DropsRemovedFile(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, "inventory.json", inventoryJSON)
	writeFile(t, dir, "billing.json", billingJSON)

	c := NewCatalog(dir)
	require.NoError(t, c.Load())
	require.Equal(t, 2, c.Count())

	require.NoError(t, os.Remove(filepath.Join(dir, "billing.json")))
	c.Reload()

	assert.Equal(t, 1, c.Count())
	_, ok := c.Get("billing")
	assert.False(t, ok)
}
