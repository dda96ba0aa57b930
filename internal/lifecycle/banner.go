package lifecycle

// Banner is one of the full-screen announcements shown during a match.
type Banner uint8

const (
	BannerReady Banner = iota
	BannerFight
	BannerYouWin
	BannerYouLose
)

var bannerText = [...]string{
	BannerReady:   "READY",
	BannerFight:   "FIGHT",
	BannerYouWin:  "YOU WIN",
	BannerYouLose: "YOU LOSE",
}

func (b Banner) String() string {
	if int(b) < len(bannerText) {
		return bannerText[b]
	}
	return "?"
}

// AnimState tracks a banner's playback.
type AnimState uint8

const (
	AnimPending AnimState = iota
	AnimPlaying
	AnimFinished
)

// Animation is a banner and its playback position.
type Animation struct {
	Banner  Banner
	State   AnimState
	Elapsed int
	Length  int
}

// Advance moves a banner one tick forward. Pending banners start playing,
// playing banners finish once Length ticks have elapsed.
func Advance(a Animation) Animation {
	switch a.State {
	case AnimPending:
		a.State = AnimPlaying
		a.Elapsed = 0
	case AnimPlaying:
		a.Elapsed++
		if a.Elapsed >= a.Length {
			a.State = AnimFinished
		}
	}
	return a
}
