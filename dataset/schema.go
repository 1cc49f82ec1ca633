/*
Package dataset implements the tabular collection of labeled image samples
the defect-detection models train on: a schema naming the sample columns,
a table with query filtering, geometric amplification, and a SQLite-backed
sample store.
*/
package dataset

/*
Schema names the columns of a sample table
*/
type Schema struct {
	SampleID string // unique sample identifier
	Image    string // image tensor
	Type     string // categorical panel type
	Quality  string // continuous quality/probability score
}

/*
ELPVSchema is the column naming of the ELPV solar-cell dataset
*/
func ELPVSchema() Schema {
	return Schema{
		SampleID: "sample_id",
		Image:    "image",
		Type:     "type",
		Quality:  "proba",
	}
}

/*
Dataset binds a sample table to the schema describing it
*/
type Dataset struct {
	Name    string
	Schema  Schema
	Samples *Table
}

/*
ELPV wraps a sample table as the ELPV dataset
*/
func ELPV(t *Table) Dataset {
	return Dataset{Name: "elpv", Schema: ELPVSchema(), Samples: t}
}

func (d Dataset) Filter(query string) error {
	return d.Samples.Filter(d.Schema, query)
}

func (d Dataset) Amplify(axes ...Mirror) error {
	return d.Samples.Amplify(axes...)
}

/*
Types returns the distinct panel-type labels present in the dataset
*/
func (d Dataset) Types() []string {
	seen := map[string]bool{}
	types := []string{}
	for _, r := range d.Samples.Rows() {
		if !seen[r.Type] {
			seen[r.Type] = true
			types = append(types, r.Type)
		}
	}
	return types
}
