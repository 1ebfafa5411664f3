package commands

import (
	"fmt"
	"math/rand/v2"
)

var creatures = []string{
	"kitten", "panda", "koala", "fox", "otter", "hedgehog", "squirrel", "ferret", "beaver", "narwhal",
	"penguin", "flamingo", "pelican", "toucan", "parrot", "dragon", "griffin", "phoenix", "sprite", "pixie",
}

var moods = []string{
	"tiny", "happy", "sleepy", "fluffy", "sparkly", "silly", "jolly", "cozy", "shiny", "golden",
	"crimson", "emerald", "brave", "calm", "swift", "silent", "bouncy", "fuzzy", "plucky", "merry",
}

var things = []string{
	"pancake", "waffle", "ramen", "taco", "dumpling", "muffin", "biscuit", "toffee", "pebble", "lantern",
	"comet", "orbit", "nebula", "rocket", "canyon", "ember", "meadow", "willow", "marble", "pixel",
}

// roomName makes a memorable room id such as "sleepy-otter-comet".
func roomName() string {
	return fmt.Sprintf("%s-%s-%s", pick(moods), pick(creatures), pick(things))
}

func pick(words []string) string {
	return words[rand.IntN(len(words))]
}
