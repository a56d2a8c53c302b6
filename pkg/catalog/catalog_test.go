package catalog

import "testing"

func TestDefaultLookup(t *testing.T) {
	c := Default()

	src, ok := c.Lookup("aws-postgres")
	if !ok {
		t.Fatal("aws-postgres not found in default catalog")
	}
	if src.Kind != ProtocolPostgres {
		t.Errorf("expected kind %s, got %s", ProtocolPostgres, src.Kind)
	}
	if src.DefaultLocalPort != 5432 {
		t.Errorf("expected default local port 5432, got %d", src.DefaultLocalPort)
	}
	if !src.RequiresTunnel() {
		t.Error("aws-postgres should require a tunnel")
	}

	if _, ok := c.Lookup("does-not-exist"); ok {
		t.Error("lookup of unknown source should fail")
	}
}

func TestCredentialOnlySources(t *testing.T) {
	c := Default()
	for _, id := range []string{"aws-s3", "gcp-bigquery"} {
		src, ok := c.Lookup(id)
		if !ok {
			t.Fatalf("%s not found", id)
		}
		if src.RequiresTunnel() {
			t.Errorf("%s should not require a tunnel", id)
		}
	}
}

func TestIDsSorted(t *testing.T) {
	c := Default()
	ids := c.IDs()
	if len(ids) == 0 {
		t.Fatal("empty catalog")
	}
	for i := 1; i < len(ids); i++ {
		if ids[i-1] >= ids[i] {
			t.Errorf("ids not sorted: %q before %q", ids[i-1], ids[i])
		}
	}
}

func TestByCloud(t *testing.T) {
	c := Default()
	clouds := c.Clouds()
	if len(clouds) != 3 {
		t.Fatalf("expected 3 clouds, got %v", clouds)
	}
	total := 0
	for _, cloud := range clouds {
		for _, s := range c.ByCloud(cloud) {
			if s.Cloud != cloud {
				t.Errorf("source %s grouped under wrong cloud %s", s.ID, cloud)
			}
			total++
		}
	}
	if total != len(c.All()) {
		t.Errorf("cloud grouping lost sources: %d != %d", total, len(c.All()))
	}
}

func TestDatasetMetadata(t *testing.T) {
	c := Default()
	src, _ := c.Lookup("aws-postgres")
	datasets := src.Datasets()
	if len(datasets) != len(src.SampleDatasets) {
		t.Fatalf("expected %d datasets, got %d", len(src.SampleDatasets), len(datasets))
	}
	if datasets[0].Name != "tpch" || datasets[0].Size == "" {
		t.Errorf("tpch metadata missing: %+v", datasets[0])
	}
}
