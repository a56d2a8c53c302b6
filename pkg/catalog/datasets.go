package catalog

// DatasetInfo describes one well-known sample dataset that may be loaded into
// a shared data source.
type DatasetInfo struct {
	Name        string
	Title       string
	Description string
	Tables      []string
	Size        string
	UseCase     string
}

var datasetInfo = map[string]DatasetInfo{
	"tpch": {
		Name:        "tpch",
		Title:       "TPC-H Decision Support Benchmark",
		Description: "Industry standard benchmark for decision support systems",
		Tables:      []string{"customer", "lineitem", "nation", "orders", "part", "partsupp", "region", "supplier"},
		Size:        "1GB",
		UseCase:     "Performance testing, query optimization",
	},
	"tpcds": {
		Name:        "tpcds",
		Title:       "TPC-DS Decision Support Benchmark",
		Description: "Advanced benchmark for business intelligence workloads",
		Tables:      []string{"catalog_sales", "store_sales", "web_sales", "customer", "item", "store", "warehouse"},
		Size:        "10GB",
		UseCase:     "Complex analytics, BI dashboard testing",
	},
	"northwind": {
		Name:        "northwind",
		Title:       "Northwind Traders Sample Database",
		Description: "Classic sample database with business data",
		Tables:      []string{"customers", "employees", "orders", "products", "suppliers", "categories"},
		Size:        "5MB",
		UseCase:     "Application development, learning SQL",
	},
	"sakila": {
		Name:        "sakila",
		Title:       "Sakila DVD Rental Database",
		Description: "Sample database for DVD rental business",
		Tables:      []string{"actor", "film", "customer", "rental", "payment", "inventory"},
		Size:        "3MB",
		UseCase:     "Learning joins, complex queries",
	},
	"employees": {
		Name:        "employees",
		Title:       "Employee Sample Database",
		Description: "Large employee database with historical data",
		Tables:      []string{"employees", "salaries", "titles", "departments", "dept_emp", "dept_manager"},
		Size:        "160MB",
		UseCase:     "Time series analysis, HR analytics",
	},
	"world": {
		Name:        "world",
		Title:       "World Database",
		Description: "Geographic and demographic world data",
		Tables:      []string{"country", "city", "countrylanguage"},
		Size:        "1MB",
		UseCase:     "Geographic queries, demographic analysis",
	},
	"adventureworks": {
		Name:        "adventureworks",
		Title:       "AdventureWorks Sample Database",
		Description: "Comprehensive business sample database",
		Tables:      []string{"person", "product", "sales", "purchasing", "humanresources"},
		Size:        "180MB",
		UseCase:     "Enterprise scenarios, complex business logic",
	},
	"public_datasets": {
		Name:        "public_datasets",
		Title:       "BigQuery Public Datasets",
		Description: "Collection of public analytics datasets",
		Tables:      []string{"various"},
		Size:        "Multi-TB",
		UseCase:     "Real-world data analysis, research",
	},
	"covid19": {
		Name:        "covid19",
		Title:       "COVID-19 Data",
		Description: "Comprehensive COVID-19 datasets",
		Tables:      []string{"cases", "deaths", "vaccinations", "mobility"},
		Size:        "100MB",
		UseCase:     "Time series analysis, public health research",
	},
	"census": {
		Name:        "census",
		Title:       "US Census Data",
		Description: "US Census Bureau demographic data",
		Tables:      []string{"population", "demographics", "economic_data"},
		Size:        "500MB",
		UseCase:     "Demographic analysis, market research",
	},
	"retail_analytics": {
		Name:        "retail_analytics",
		Title:       "Retail Analytics Dataset",
		Description: "Synthetic retail transaction data",
		Tables:      []string{"transactions", "customers", "products", "stores"},
		Size:        "2GB",
		UseCase:     "Retail analytics, customer segmentation",
	},
	"iot_data": {
		Name:        "iot_data",
		Title:       "IoT Sensor Data",
		Description: "Time series IoT sensor measurements",
		Tables:      []string{"sensor_readings", "devices", "locations"},
		Size:        "5GB",
		UseCase:     "IoT analytics, time series forecasting",
	},
}

// Datasets returns metadata for the source's sample datasets. Datasets
// without registered metadata are returned with only the name set.
func (s Source) Datasets() []DatasetInfo {
	out := make([]DatasetInfo, 0, len(s.SampleDatasets))
	for _, name := range s.SampleDatasets {
		if info, ok := datasetInfo[name]; ok {
			out = append(out, info)
		} else {
			out = append(out, DatasetInfo{Name: name})
		}
	}
	return out
}
