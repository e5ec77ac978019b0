// internal/room/responses.go
package room

import "math/rand"

// Farewell is the special response that ends a room. Once it has been fully
// revealed the room closes itself after Config.FarewellCloseDelay.
const Farewell = "GOODBYE"

// SpiritResponses is the fixed vocabulary a session answer is drawn from.
var SpiritResponses = []string{
	"YES", "NO", "PERHAPS", "THE SPIRITS ARE UNCLEAR", "ASK AGAIN LATER", "IT IS CERTAIN",
	"WITHOUT A DOUBT", "YOU MAY RELY ON IT", "MOST LIKELY", "OUTLOOK GOOD", "SIGNS POINT TO YES",
	"DON'T COUNT ON IT", "MY SOURCES SAY NO", "VERY DOUBTFUL", "THE STARS ARE NOT ALIGNED",
	"THE VEIL IS TOO THICK", "A MESSAGE IS TRYING TO COME THROUGH", "BEWARE OF TRICKSTER SPIRITS",
	"GOODBYE", "FOCUS AND ASK AGAIN", "THE ENERGY IS WEAK", "AN UNSEEN PRESENCE IS NEAR",
	"LOOK FOR A SIGN", "THE ANSWER IS WITHIN YOU", "ANOTHER TIME", "WE ARE ALWAYS WATCHING", "NOT ALONE",
	"IT'S BEHIND YOU", "THE ANSWER LIES IN THE EAST", "A FRIEND IS NOT WHO THEY SEEM", "TRUST YOUR GUT",
	"A FULL MOON WILL BRING CLARITY", "THE PATH IS DARK", "EXPECT THE UNEXPECTED", "SOON",
	"NEVER", "WHY DO YOU ASK?", "THEY ARE LISTENING", "DO NOT PROCEED", "A WISE CHOICE",
	"THEY LAUGH AT YOUR QUESTION", "SILENCE IS THE ANSWER", "A SECRET WILL BE REVEALED",
	"IT IS LISTENING FROM BELOW", "HE RISES", "LEAVE THIS PLACE", "A SOUL FOR A SECRET",
	"THE NAMELESS ONE APPROVES", "YOU ARE NOT WELCOME HERE", "DARKNESS FALLS", "THREE DAYS",
	"THE MAN WITH NO FACE WATCHES", "IT IS TRAPPED IN THE MIRROR", "YOUR FEAR FEEDS IT", "THE SIXTH SEAL",
	"FORSAKEN", "IT KNOWS YOUR NAME", "ASH AND BONE", "IT HUNGERS", "MORS VINCIT OMNIA",
	"THE SPIDER SPINS ITS WEB", "HE IS THE FATHER OF LIES", "IT WEARS A MASK OF LIGHT",
}

// pickResponse draws a session answer. With farewellPercent odds the draw is
// the Farewell response (reported via the bool). A regular draw never repeats
// prev, so two consecutive sessions cannot show the same answer.
func pickResponse(rng *rand.Rand, prev string, farewellPercent int) (string, bool) {
	if farewellPercent > 0 && rng.Intn(100) < farewellPercent {
		return Farewell, true
	}
	for {
		r := SpiritResponses[rng.Intn(len(SpiritResponses))]
		if r == Farewell || r == prev {
			continue
		}
		return r, false
	}
}
