package types

type Connectivity int

const (
	Offline Connectivity = iota
	OnlineMetered
	OnlineUnmetered
)

func (c Connectivity) String() string {
	switch c {
	case Offline:
		return "Offline"
	case OnlineMetered:
		return "OnlineMetered"
	case OnlineUnmetered:
		return "OnlineUnmetered"
	default:
		return "Unknown"
	}
}

func (c Connectivity) Online() bool {
	return c == OnlineMetered || c == OnlineUnmetered
}
