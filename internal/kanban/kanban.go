// Package kanban holds the grouping and drag-reorder math for board views:
// partitioning cards into columns by a select-typed grouping property and
// computing the batched order updates a column move produces.
package kanban

import (
	"fmt"
	"sort"
	"strings"

	"github.com/google/uuid"
	"github.com/kanflow/kanflow-api/internal/models"
)

// NoValueGroupID is the synthetic column for cards holding no value for the
// grouping property.
const NoValueGroupID = "_none"

// Group is one kanban column and its cards in ascending order.
type Group struct {
	ID    string
	Title string
	Cards []models.Card
}

// CardPatch is one entry of the batched update a move produces. Properties is
// nil when only the order changed.
type CardPatch struct {
	ID         uuid.UUID
	Order      int
	Properties map[string]string
}

// PickGroupingProperty selects the property cards are bucketed by: the first
// property whose name signals status, falling back to the first select-typed
// property.
func PickGroupingProperty(props []models.CardProperty) (models.CardProperty, bool) {
	for _, p := range props {
		if strings.Contains(strings.ToLower(p.Name), "status") {
			return p, true
		}
	}
	for _, p := range props {
		if p.Type == models.PropertyTypeSelect {
			return p, true
		}
	}
	return models.CardProperty{}, false
}

// GroupCards partitions cards into one group per option of the grouping
// property, in option order, followed by the synthetic no-value group. Cards
// whose value matches no option land in the no-value group. Within each group
// cards are sorted by ascending order.
func GroupCards(cards []models.Card, prop models.CardProperty) ([]Group, error) {
	groups := make([]Group, 0, len(prop.Options)+1)
	index := make(map[string]int, len(prop.Options)+1)
	for _, opt := range prop.Options {
		index[opt.ID] = len(groups)
		groups = append(groups, Group{ID: opt.ID, Title: opt.Value})
	}
	index[NoValueGroupID] = len(groups)
	groups = append(groups, Group{ID: NoValueGroupID})

	for _, card := range cards {
		bag, err := card.PropertyMap()
		if err != nil {
			return nil, err
		}
		gi, ok := index[bag[prop.ID]]
		if !ok {
			gi = index[NoValueGroupID]
		}
		groups[gi].Cards = append(groups[gi].Cards, card)
	}

	for gi := range groups {
		g := groups[gi].Cards
		sort.SliceStable(g, func(i, j int) bool { return g[i].Order < g[j].Order })
	}
	return groups, nil
}

// MoveCard computes the updates for dropping cardID at toIndex inside
// toGroupID. The moved card gets the destination index as its order and, on a
// cross-group move, its grouping-property value rewritten (removed when moved
// to the no-value group). Cards at or past the insertion point in the
// destination shift up by one; the vacated source group is left with a gap.
func MoveCard(groups []Group, cardID uuid.UUID, propID, toGroupID string, toIndex int) ([]CardPatch, error) {
	var moved *models.Card
	for gi := range groups {
		for ci := range groups[gi].Cards {
			if groups[gi].Cards[ci].ID == cardID {
				moved = &groups[gi].Cards[ci]
			}
		}
	}
	if moved == nil {
		return nil, fmt.Errorf("card %s not in any group", cardID)
	}

	var dest *Group
	for gi := range groups {
		if groups[gi].ID == toGroupID {
			dest = &groups[gi]
		}
	}
	if dest == nil {
		return nil, fmt.Errorf("unknown destination group %q", toGroupID)
	}

	// Destination ordering with the moved card taken out, so a same-group
	// move still yields a dense 0..n-1 sequence.
	remaining := make([]models.Card, 0, len(dest.Cards))
	for _, card := range dest.Cards {
		if card.ID != cardID {
			remaining = append(remaining, card)
		}
	}
	if toIndex < 0 {
		toIndex = 0
	}
	if toIndex > len(remaining) {
		toIndex = len(remaining)
	}

	bag, err := moved.PropertyMap()
	if err != nil {
		return nil, err
	}
	if toGroupID == NoValueGroupID {
		delete(bag, propID)
	} else {
		bag[propID] = toGroupID
	}

	patches := []CardPatch{{ID: cardID, Order: toIndex, Properties: bag}}
	for i, card := range remaining {
		order := i
		if i >= toIndex {
			order = i + 1
		}
		if order != card.Order {
			patches = append(patches, CardPatch{ID: card.ID, Order: order})
		}
	}
	return patches, nil
}
