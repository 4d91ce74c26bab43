package account

import (
	"fmt"
	"testing"

	"github.com/leanovate/gopter"
	"github.com/leanovate/gopter/gen"
	"github.com/leanovate/gopter/prop"
	"github.com/stretchr/testify/assert"

	"laundry/internal/models"
)

func exactlyOneDefault(list []models.Address) bool {
	if len(list) == 0 {
		return true
	}
	return countDefaults(list) == 1
}

// applyOps decodes each value into an add, delete or set-default step.
func applyOps(ops []int) ([]models.Address, bool) {
	var list []models.Address
	for i, op := range ops {
		param := op / 3
		switch op % 3 {
		case 0:
			list = appendAddress(list, models.Address{ID: fmt.Sprintf("a%d", i), IsDefault: param%2 == 0})
		case 1:
			if len(list) == 0 {
				continue
			}
			target := list[param%len(list)]
			next, ok := removeAddress(list, target.ID)
			if !ok {
				return list, false
			}
			if target.IsDefault && len(next) > 0 && !next[0].IsDefault {
				return next, false
			}
			list = next
		case 2:
			if len(list) == 0 {
				continue
			}
			target := list[param%len(list)]
			next, ok := setDefaultAddress(list, target.ID)
			if !ok || !next[param%len(next)].IsDefault {
				return next, false
			}
			list = next
		}
		if !exactlyOneDefault(list) {
			return list, false
		}
	}
	return list, true
}

func TestAddressListKeepsSingleDefault(t *testing.T) {
	properties := gopter.NewProperties(nil)

	properties.Property("any sequence of edits leaves exactly one default", prop.ForAll(
		func(ops []int) bool {
			_, ok := applyOps(ops)
			return ok
		},
		gen.SliceOf(gen.IntRange(0, 299)),
	))

	properties.Property("adding with isDefault makes the new entry the only default", prop.ForAll(
		func(size int) bool {
			var list []models.Address
			for i := 0; i < size; i++ {
				list = appendAddress(list, models.Address{ID: fmt.Sprintf("a%d", i)})
			}
			list = appendAddress(list, models.Address{ID: "new", IsDefault: true})
			def, ok := DefaultAddress(list)
			return ok && def.ID == "new" && countDefaults(list) == 1
		},
		gen.IntRange(0, 20),
	))

	properties.TestingRun(t)
}

func TestRemoveAddressDoesNotMutateInput(t *testing.T) {
	list := []models.Address{{ID: "a", IsDefault: true}, {ID: "b"}}
	next, ok := removeAddress(list, "a")
	assert.True(t, ok)
	assert.True(t, next[0].IsDefault)
	assert.False(t, list[1].IsDefault)

	same, ok := removeAddress(list, "zzz")
	assert.False(t, ok)
	assert.Equal(t, list, same)
}

func TestNormalizeDefaultRepairsLegacyLists(t *testing.T) {
	none := normalizeDefault([]models.Address{{ID: "a"}, {ID: "b"}})
	assert.True(t, none[0].IsDefault)

	many := normalizeDefault([]models.Address{{ID: "a"}, {ID: "b", IsDefault: true}, {ID: "c", IsDefault: true}})
	assert.Equal(t, 1, countDefaults(many))
	assert.True(t, many[1].IsDefault)
}
