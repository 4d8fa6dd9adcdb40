package seed

// Fixture is the top-level structure of a seed file
type Fixture struct {
	Users    []Entry `yaml:"users"`
	Articles []Entry `yaml:"articles"`
}

// Entry names one document to create. A blank ID gets a generated UUID;
// Name only documents the entry and is not stored.
type Entry struct {
	ID   string `yaml:"id,omitempty"`
	Name string `yaml:"name,omitempty"`
}

// Seed is a normalised fixture ready to be written.
type Seed struct {
	UserIDs    []string
	ArticleIDs []string
}
