package search

import (
	"context"
	"slices"
	"strings"
)

// Mock is an offline backend over a fixed catalog of reputable resources.
// Results are ranked by how many query terms each entry matches; entries
// matching nothing are left out, so an unrelated query returns an empty
// list rather than an error.
type Mock struct {
	Catalog []Candidate
	Limit   int
}

// NewMock returns a Mock over the built-in catalog.
func NewMock() *Mock {
	return &Mock{Catalog: catalog, Limit: 8}
}

func (m *Mock) Name() string { return "mock" }

func (m *Mock) Search(ctx context.Context, query string) ([]Candidate, error) {
	if strings.TrimSpace(query) == "" {
		return nil, ErrEmptyQuery
	}
	terms := queryTerms(query)
	if err := ctx.Err(); err != nil {
		return nil, &UnavailableError{Backend: m.Name(), Err: err}
	}

	type scored struct {
		c     Candidate
		score int
	}
	var hits []scored
	for _, c := range m.Catalog {
		text := strings.ToLower(c.Title + " " + c.Snippet)
		score := 0
		for _, term := range terms {
			if strings.Contains(text, term) {
				score++
			}
		}
		if score > 0 {
			hits = append(hits, scored{c: c, score: score})
		}
	}

	slices.SortStableFunc(hits, func(a, b scored) int {
		return b.score - a.score
	})

	out := make([]Candidate, 0, len(hits))
	for _, h := range hits {
		if m.Limit > 0 && len(out) == m.Limit {
			break
		}
		out = append(out, h.c)
	}
	return Sanitize(out), nil
}

// queryTerms splits a query into lowercase terms of three or more letters.
func queryTerms(query string) []string {
	var terms []string
	for _, f := range strings.Fields(normalizeQuery(query)) {
		f = strings.Trim(f, `.,;:!?"'()`)
		if len(f) >= 3 && !slices.Contains(terms, f) {
			terms = append(terms, f)
		}
	}
	return terms
}

var catalog = []Candidate{
	{
		Title:   "Photosynthesis | Khan Academy",
		URL:     "https://www.khanacademy.org/science/biology/photosynthesis-in-plants",
		Snippet: "Video lessons and practice on how plants turn light, water and carbon dioxide into sugar. Biology science for middle grades.",
	},
	{
		Title:   "How Do Plants Make Food? | NASA Climate Kids",
		URL:     "https://climatekids.nasa.gov/plants/",
		Snippet: "Kid-friendly science explainer on photosynthesis, leaves and the carbon cycle with activities.",
	},
	{
		Title:   "Photosynthesis Interactive | PBS LearningMedia",
		URL:     "https://www.pbslearningmedia.org/resource/tdc02.sci.life.stru.photosynth/photosynthesis/",
		Snippet: "Interactive science lesson and teacher guide on photosynthesis for grades 3-8.",
	},
	{
		Title:   "Smithsonian Learning Lab: Plants and Pollinators",
		URL:     "https://learninglab.si.edu/collections/plants-and-pollinators",
		Snippet: "Museum collection of images, videos and lesson plans on plant life cycles, pollination and ecosystems.",
	},
	{
		Title:   "The Solar System | NASA Space Place",
		URL:     "https://spaceplace.nasa.gov/menu/solar-system/",
		Snippet: "Games, crafts and articles about the planets, the sun, moons and space exploration for elementary science.",
	},
	{
		Title:   "Volcanoes | National Geographic Education",
		URL:     "https://education.nationalgeographic.org/resource/volcanoes/",
		Snippet: "Encyclopedic entry, maps and classroom activities about volcanoes, plate tectonics and earth science.",
	},
	{
		Title:   "Fractions | Khan Academy",
		URL:     "https://www.khanacademy.org/math/arithmetic/fraction-arithmetic",
		Snippet: "Math practice and videos on equivalent fractions, comparing and adding fractions for grades 3-6.",
	},
	{
		Title:   "Illustrative Mathematics K-5 Curriculum",
		URL:     "https://illustrativemathematics.org/math-curriculum/k-5-math/",
		Snippet: "Problem-based math curriculum units covering place value, fractions, geometry and measurement.",
	},
	{
		Title:   "Ancient Egypt | The British Museum",
		URL:     "https://www.britishmuseum.org/learn/schools/ages-7-11/ancient-egypt",
		Snippet: "Museum resources for history lessons on ancient Egypt: pharaohs, hieroglyphs, mummies and daily life.",
	},
	{
		Title:   "American Revolution | Library of Congress Classroom Materials",
		URL:     "https://www.loc.gov/classroom-materials/american-revolution-1763-1783/",
		Snippet: "Primary source sets and teaching guides on the American Revolution for history and civics.",
	},
	{
		Title:   "ReadWriteThink Lesson Plans | NCTE",
		URL:     "https://www.readwritethink.org/classroom-resources/lesson-plans",
		Snippet: "Reading and writing lesson plans for literacy, poetry, grammar and language arts from the National Council of Teachers of English.",
	},
	{
		Title:   "Water Cycle | USGS Water Science School",
		URL:     "https://www.usgs.gov/special-topics/water-science-school/science/water-cycle-kids",
		Snippet: "Diagrams and explanations of evaporation, condensation and precipitation for earth science learners.",
	},
	{
		Title:   "Coding for Kids | Code.org",
		URL:     "https://code.org/student/elementary",
		Snippet: "Self-paced computer science and coding courses with block programming for elementary grades.",
	},
	{
		Title:   "Human Body Systems | KidsHealth",
		URL:     "https://kidshealth.org/en/kids/htbw/",
		Snippet: "Articles, videos and quizzes on how the body works: heart, lungs, brain and digestion for health science.",
	},
}
