package account

import "laundry/internal/models"

// Address list operations. Each returns a fresh slice and leaves exactly one
// default whenever the result is non-empty.

func appendAddress(list []models.Address, addr models.Address) []models.Address {
	out := make([]models.Address, 0, len(list)+1)
	makeDefault := addr.IsDefault || len(list) == 0
	for _, existing := range list {
		if makeDefault {
			existing.IsDefault = false
		}
		out = append(out, existing)
	}
	addr.IsDefault = makeDefault
	return normalizeDefault(append(out, addr))
}

func removeAddress(list []models.Address, id string) ([]models.Address, bool) {
	out := make([]models.Address, 0, len(list))
	found := false
	for _, existing := range list {
		if existing.ID == id && !found {
			found = true
			continue
		}
		out = append(out, existing)
	}
	if !found {
		return list, false
	}
	return normalizeDefault(out), true
}

func setDefaultAddress(list []models.Address, id string) ([]models.Address, bool) {
	if findAddress(list, id) < 0 {
		return list, false
	}
	out := make([]models.Address, len(list))
	for i, existing := range list {
		existing.IsDefault = existing.ID == id
		out[i] = existing
	}
	return normalizeDefault(out), true
}

// normalizeDefault keeps the first default and clears the rest; with no
// default the first entry is promoted.
func normalizeDefault(list []models.Address) []models.Address {
	if len(list) == 0 {
		return list
	}
	seen := false
	for i := range list {
		if list[i].IsDefault {
			if seen {
				list[i].IsDefault = false
			}
			seen = true
		}
	}
	if !seen {
		list[0].IsDefault = true
	}
	return list
}

func findAddress(list []models.Address, id string) int {
	for i, existing := range list {
		if existing.ID == id {
			return i
		}
	}
	return -1
}

// DefaultAddress returns the default entry, if any.
func DefaultAddress(list []models.Address) (models.Address, bool) {
	for _, existing := range list {
		if existing.IsDefault {
			return existing, true
		}
	}
	return models.Address{}, false
}
