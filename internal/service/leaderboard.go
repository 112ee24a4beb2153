package service

// LeaderboardEntry is one row of the green-credits leaderboard.
type LeaderboardEntry struct {
	Name    string `json:"name"`
	Credits int    `json:"credits"`
	Rank    int    `json:"rank"`
	Avatar  string `json:"avatar"`
}

// Leaderboard returns the fixed green-credits leaderboard.
func Leaderboard() []LeaderboardEntry {
	return []LeaderboardEntry{
		{Name: "Rajesh Kumar", Credits: 450, Rank: 1, Avatar: "https://i.pravatar.cc/150?u=rajesh"},
		{Name: "Asha Sharma", Credits: 320, Rank: 2, Avatar: "https://i.pravatar.cc/150?u=asha"},
		{Name: "David Miller", Credits: 280, Rank: 3, Avatar: "https://i.pravatar.cc/150?u=david"},
		{Name: "Priya Singh", Credits: 210, Rank: 4, Avatar: "https://i.pravatar.cc/150?u=priya"},
		{Name: "Amit Patel", Credits: 150, Rank: 5, Avatar: "https://i.pravatar.cc/150?u=amit"},
	}
}
