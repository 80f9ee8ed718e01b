package calculator

import (
	"math"

	"github.com/joeminicucci/paxdei-crafting-bot/recipe"
)

// ChestSlots is the slot capacity of one storage chest.
const ChestSlots = 20

// Slots returns how many inventory slots qty units occupy at the given max
// stack size. A stack size below 1 falls back to recipe.DefaultMaxStack.
func Slots(qty float64, maxStack int) int {
	if maxStack < 1 {
		maxStack = recipe.DefaultMaxStack
	}
	if qty <= 0 {
		return 0
	}
	return int(math.Ceil(qty / float64(maxStack)))
}

// TotalSlots sums slot usage across a raw requirement map. Slugs missing
// from stacks use the default stack size.
func TotalSlots(raw map[string]float64, stacks map[string]int) int {
	total := 0
	for slug, qty := range raw {
		total += Slots(qty, stacks[slug])
	}
	return total
}

// Chests returns how many chests the given slot count fills.
func Chests(slots int) int {
	if slots <= 0 {
		return 0
	}
	return int(math.Ceil(float64(slots) / float64(ChestSlots)))
}

// OverheadPercent reports how much larger the adjusted slot total is than
// the ideal one, as a whole percentage rounded to nearest. A zero ideal
// total reports zero.
func OverheadPercent(adjustedSlots, idealSlots int) int {
	if idealSlots == 0 {
		return 0
	}
	return int(math.Round((float64(adjustedSlots)/float64(idealSlots) - 1.0) * 100.0))
}
