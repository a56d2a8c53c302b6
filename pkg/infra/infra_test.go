package infra

import (
	"os"
	"path/filepath"
	"testing"
)

func TestStackOutputsLookup(t *testing.T) {
	path := filepath.Join(t.TempDir(), "stack-outputs.json")
	content := `{
  "aws_postgresql": {"endpoint": "db.internal", "port": 5432, "database": "shared_db", "type": "postgresql", "cloud": "aws"},
  "gcp_bigquery": {"endpoint": "", "port": 443}
}`
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		t.Fatal(err)
	}

	oracle := &StackOutputs{Path: path}

	ep, ok := oracle.DeployedEndpoint("aws", "postgresql")
	if !ok {
		t.Fatal("expected aws_postgresql endpoint")
	}
	if ep.Host != "db.internal" || ep.Port != 5432 || ep.Database != "shared_db" {
		t.Errorf("unexpected endpoint %+v", ep)
	}

	// Empty endpoint host means not deployed.
	if _, ok := oracle.DeployedEndpoint("gcp", "bigquery"); ok {
		t.Error("empty endpoint should report not deployed")
	}
	if _, ok := oracle.DeployedEndpoint("azure", "sqlserver"); ok {
		t.Error("missing key should report not deployed")
	}
}

func TestStackOutputsMissingFile(t *testing.T) {
	oracle := &StackOutputs{Path: filepath.Join(t.TempDir(), "absent.json")}
	if _, ok := oracle.DeployedEndpoint("aws", "postgresql"); ok {
		t.Error("missing outputs file should report not deployed")
	}
}

func TestKubeconfigCluster(t *testing.T) {
	c := &KubeconfigCluster{}
	if c.Reachable() {
		t.Error("empty path should not be reachable")
	}

	path := filepath.Join(t.TempDir(), "kubeconfig")
	c.KubeconfigPath = path
	if c.Reachable() {
		t.Error("missing kubeconfig should not be reachable")
	}
	if err := os.WriteFile(path, []byte("apiVersion: v1\n"), 0600); err != nil {
		t.Fatal(err)
	}
	if !c.Reachable() {
		t.Error("existing kubeconfig should be reachable")
	}
}
