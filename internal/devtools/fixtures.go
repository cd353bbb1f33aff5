package devtools

import (
	"mrtui/internal/geo"
	"mrtui/internal/remote"

	"github.com/paulmach/orb"
)

type Fixtures struct {
	User       remote.User
	Challenges []ChallengeFixture
}

type ChallengeFixture struct {
	Challenge remote.Challenge
	Tasks     []TaskFixture
}

type TaskFixture struct {
	ID          string
	Status      remote.TaskStatus
	Instruction string
	Features    []geo.Feature
}

// DemoFixtures is a small world around Berlin and Amsterdam to play with
// offline.
func DemoFixtures() Fixtures {
	return Fixtures{
		User: remote.User{DisplayName: "demo", OSMID: 1},
		Challenges: []ChallengeFixture{
			{
				Challenge: remote.Challenge{
					Slug:        "connectivity",
					Title:       "Disconnected highways",
					Blurb:       "Roads that end a few metres short of another road.",
					Description: "Each task is a highway end point that is **very close** to another way but not connected to it.",
					Help:        "Zoom in, check the imagery and join the end node to the nearby way when they really meet.",
					Instruction: "Connect the highlighted end node if the roads meet.",
					Lon:         13.40,
					Lat:         52.52,
					Radius:      5000,
					Active:      true,
					Difficulty:  1,
				},
				Tasks: []TaskFixture{
					pointTask("101", 13.4012, 52.5203, 26000101),
					pointTask("102", 13.4107, 52.5151, 26000102),
					{
						ID:          "103",
						Instruction: "This service road dead-ends next to a parking aisle.",
						Features: []geo.Feature{
							{Geometry: orb.LineString{{13.3921, 52.5102}, {13.3930, 52.5108}, {13.3941, 52.5110}}, OSMID: 4200103},
							{Geometry: orb.Point{13.3941, 52.5110}, OSMID: 26000103},
						},
					},
					pointTask("104", 13.4290, 52.5330, 26000104),
				},
			},
			{
				Challenge: remote.Challenge{
					Slug:        "untagged-buildings",
					Title:       "Buildings without a type",
					Blurb:       "Add a building type where the use is obvious.",
					Instruction: "Set building=* to something more specific than yes.",
					Lon:         4.90,
					Lat:         52.37,
					Radius:      3000,
					Active:      true,
					Difficulty:  2,
					DoneDialog: remote.DoneDialog{
						Text:    "Did you add a building type?",
						Buttons: []remote.Action{remote.ActionFixed, remote.ActionSkipped, remote.ActionAlreadyFixed},
					},
				},
				Tasks: []TaskFixture{
					polygonTask("201", 4.9001, 52.3702, 9100201),
					polygonTask("202", 4.8952, 52.3731, 9100202),
					{ID: "203", Status: remote.StatusFixed, Features: []geo.Feature{
						{Geometry: orb.Point{4.9050, 52.3660}, OSMID: 26000203},
					}},
				},
			},
			{
				Challenge: remote.Challenge{
					Slug:       "archived-crossings",
					Title:      "Crossings (archived)",
					Active:     false,
					Difficulty: 3,
				},
			},
		},
	}
}

func pointTask(id string, lon, lat float64, osmID int64) TaskFixture {
	return TaskFixture{ID: id, Features: []geo.Feature{{Geometry: orb.Point{lon, lat}, OSMID: osmID}}}
}

// polygonTask is a small square building footprint centred on lon/lat.
func polygonTask(id string, lon, lat float64, osmID int64) TaskFixture {
	const d = 0.0002
	ring := orb.Ring{{lon - d, lat - d}, {lon + d, lat - d}, {lon + d, lat + d}, {lon - d, lat + d}, {lon - d, lat - d}}
	return TaskFixture{ID: id, Features: []geo.Feature{{Geometry: orb.Polygon{ring}, OSMID: osmID}}}
}
