package directory

import "github.com/aryannaik/pick/internal/candidate"

// DemoCandidates returns sample candidates with fresh ids.
func DemoCandidates() []candidate.Candidate {
	return []candidate.Candidate{
		{
			ID:   candidate.NewID(),
			Name: "Conan Gray",
			SocialHandles: []candidate.Handle{
				{Platform: candidate.Instagram, Username: "conangray"},
				{Platform: candidate.Twitter, Username: "conangray"},
				{Platform: candidate.Facebook, Username: "conangrayofficial"},
			},
			PictureURL:       "https://upload.wikimedia.org/wikipedia/commons/5/54/Conan_Gray_U_Street_Music_Hall_March_2019_2.jpg",
			ShortDescription: "American singer-songwriter (born 1998)",
			About:            "Born in Lemon Grove, California, and raised in Georgetown, Texas, he began uploading vlogs, covers and original songs to YouTube as a teenager. In 2018, Gray signed a record deal with Republic Records, which released his debut EP, Sunset Season (2018).",
			WikiPage:         &candidate.Page{Title: "Conan Gray"},
			VoteCount:        23_200_000,
			Rating:           5,
		},
		{
			ID:   candidate.NewID(),
			Name: "Hayd",
			SocialHandles: []candidate.Handle{
				{Platform: candidate.Instagram, Username: "haydmusic"},
				{Platform: candidate.Twitter, Username: "hayd_music"},
			},
			PictureURL:       "https://marsh.digitya.com/media/hayd.jpg",
			ShortDescription: "Singer",
			About:            "Look into my eyes; see all the pain inside…",
			VoteCount:        1_400_000,
			Rating:           5,
		},
		{
			ID:   candidate.NewID(),
			Name: "Cecil Baldwin",
			SocialHandles: []candidate.Handle{
				{Platform: candidate.Twitter, Username: "CecilBaldwinIII"},
				{Platform: candidate.Instagram, Username: "cecilbaldwiniii"},
			},
			PictureURL:       "https://pbs.twimg.com/profile_images/1471018399358672896/OjQGOApA_400x400.jpg",
			ShortDescription: "Voice actor",
			About:            "Amazing.",
			VoteCount:        14_400_000,
			Rating:           5,
		},
	}
}
