package catalog

import "sort"

// ProtocolKind is the closed set of protocols a shared data source can speak.
// Adding a kind requires updating every switch over this set.
type ProtocolKind string

const (
	ProtocolPostgres      ProtocolKind = "relational-postgres"
	ProtocolMySQL         ProtocolKind = "relational-mysql"
	ProtocolSQLServer     ProtocolKind = "relational-sqlserver"
	ProtocolObjectStorage ProtocolKind = "object-storage"
	ProtocolWarehouse     ProtocolKind = "analytics-warehouse"
)

// Kinds returns every protocol kind.
func Kinds() []ProtocolKind {
	return []ProtocolKind{
		ProtocolPostgres,
		ProtocolMySQL,
		ProtocolSQLServer,
		ProtocolObjectStorage,
		ProtocolWarehouse,
	}
}

// Source describes one shared data source. Sources are static: they are
// loaded once at process start and never mutated.
type Source struct {
	ID               string
	Name             string
	Description      string
	Cloud            string
	Kind             ProtocolKind
	BastionHost      string // empty for credential-only cloud services
	TargetHost       string
	TargetPort       int
	DefaultLocalPort int
	Database         string
	ProjectID        string // warehouse project for direct cloud services
	SampleDatasets   []string
}

// RequiresTunnel reports whether access goes through a bastion host, rather
// than directly against a cloud service endpoint.
func (s Source) RequiresTunnel() bool { return s.BastionHost != "" }

// Catalog is a lookup table of shared data sources keyed by identifier.
type Catalog struct {
	sources map[string]Source
}

// New builds a catalog from the given sources.
func New(sources []Source) *Catalog {
	m := make(map[string]Source, len(sources))
	for _, s := range sources {
		m[s.ID] = s
	}
	return &Catalog{sources: m}
}

// Lookup returns the source with the given identifier.
func (c *Catalog) Lookup(id string) (Source, bool) {
	s, ok := c.sources[id]
	return s, ok
}

// IDs returns all source identifiers, sorted.
func (c *Catalog) IDs() []string {
	ids := make([]string, 0, len(c.sources))
	for id := range c.sources {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}

// All returns every source, sorted by identifier.
func (c *Catalog) All() []Source {
	out := make([]Source, 0, len(c.sources))
	for _, id := range c.IDs() {
		out = append(out, c.sources[id])
	}
	return out
}

// Clouds returns the distinct cloud tags present in the catalog, sorted.
func (c *Catalog) Clouds() []string {
	seen := map[string]bool{}
	for _, s := range c.sources {
		seen[s.Cloud] = true
	}
	clouds := make([]string, 0, len(seen))
	for cloud := range seen {
		clouds = append(clouds, cloud)
	}
	sort.Strings(clouds)
	return clouds
}

// ByCloud returns the sources for one cloud, sorted by identifier.
func (c *Catalog) ByCloud(cloud string) []Source {
	var out []Source
	for _, s := range c.All() {
		if s.Cloud == cloud {
			out = append(out, s)
		}
	}
	return out
}

// Default returns the built-in catalog of shared data sources.
func Default() *Catalog {
	return New([]Source{
		{
			ID:               "aws-postgres",
			Name:             "AWS PostgreSQL (Shared)",
			Description:      "Shared PostgreSQL instance with sample datasets",
			Cloud:            "aws",
			Kind:             ProtocolPostgres,
			BastionHost:      "bastion-aws.platform.internal",
			TargetHost:       "postgres-shared.platform.internal",
			TargetPort:       5432,
			DefaultLocalPort: 5432,
			Database:         "shared_db",
			SampleDatasets:   []string{"tpch", "tpcds", "northwind", "sakila"},
		},
		{
			ID:               "aws-mysql",
			Name:             "AWS MySQL (Shared)",
			Description:      "Shared MySQL instance for compatibility testing",
			Cloud:            "aws",
			Kind:             ProtocolMySQL,
			BastionHost:      "bastion-aws.platform.internal",
			TargetHost:       "mysql-shared.platform.internal",
			TargetPort:       3306,
			DefaultLocalPort: 3306,
			Database:         "shared_db",
			SampleDatasets:   []string{"tpch", "tpcds", "employees", "world"},
		},
		{
			ID:             "aws-s3",
			Name:           "AWS S3 (Shared Buckets)",
			Description:    "Shared S3 buckets with various data formats",
			Cloud:          "aws",
			Kind:           ProtocolObjectStorage,
			SampleDatasets: []string{"platform-shared-parquet", "platform-shared-json", "platform-shared-csv"},
		},
		{
			ID:               "gcp-postgres",
			Name:             "GCP Cloud SQL PostgreSQL",
			Description:      "Shared PostgreSQL on GCP with multi-region sample data",
			Cloud:            "gcp",
			Kind:             ProtocolPostgres,
			BastionHost:      "bastion-gcp.platform.internal",
			TargetHost:       "postgres-gcp.platform.internal",
			TargetPort:       5432,
			DefaultLocalPort: 5433,
			Database:         "shared_db",
			SampleDatasets:   []string{"tpch", "tpcds", "northwind"},
		},
		{
			ID:             "gcp-bigquery",
			Name:           "GCP BigQuery (Shared)",
			Description:    "BigQuery data warehouse with public datasets and sample data",
			Cloud:          "gcp",
			Kind:           ProtocolWarehouse,
			ProjectID:      "platform-shared-data",
			SampleDatasets: []string{"public_datasets", "covid19", "census"},
		},
		{
			ID:               "azure-sqlserver",
			Name:             "Azure SQL Server",
			Description:      "Azure SQL Server with enterprise sample databases",
			Cloud:            "azure",
			Kind:             ProtocolSQLServer,
			BastionHost:      "bastion-azure.platform.internal",
			TargetHost:       "sqlserver-shared.platform.internal",
			TargetPort:       1433,
			DefaultLocalPort: 1433,
			Database:         "shared_db",
			SampleDatasets:   []string{"tpch", "tpcds", "adventureworks"},
		},
		{
			ID:               "azure-synapse",
			Name:             "Azure Synapse (Shared)",
			Description:      "Shared Azure Synapse for data warehouse testing",
			Cloud:            "azure",
			Kind:             ProtocolWarehouse,
			BastionHost:      "bastion-azure.platform.internal",
			TargetHost:       "synapse-shared.platform.internal",
			TargetPort:       1433,
			DefaultLocalPort: 1433,
			Database:         "shared_db",
			SampleDatasets:   []string{"tpch", "retail_analytics", "iot_data"},
		},
	})
}
