package profile

import (
	"fmt"
	"strings"

	"github.com/pkg/errors"
	"github.com/rs/zerolog/log"
	"gopkg.in/yaml.v3"

	"github.com/platformeng/dataconnect/pkg/catalog"
	"github.com/platformeng/dataconnect/pkg/infra"
	"github.com/platformeng/dataconnect/pkg/store"
)

// Default connection identity for shared sources. The actual secret is always
// referenced by environment variable name, never written to disk.
const defaultUsername = "platform"

// Connection is the resolved endpoint a consumer should dial: the tunnel's
// local endpoint for bastion-fronted sources, the cloud endpoint otherwise.
type Connection struct {
	Host        string `yaml:"host"`
	Port        int    `yaml:"port"`
	Database    string `yaml:"database,omitempty"`
	Username    string `yaml:"username,omitempty"`
	PasswordEnv string `yaml:"password_env,omitempty"`
}

// SSHTunnelInfo describes the tunnel backing a connection, when one exists.
type SSHTunnelInfo struct {
	BastionHost string `yaml:"bastion_host"`
	BastionUser string `yaml:"bastion_user"`
	TargetHost  string `yaml:"target_host"`
	TargetPort  int    `yaml:"target_port"`
	LocalPort   int    `yaml:"local_port"`
}

// ConnectionProfile is the consumer-facing description of an enabled data
// source, written as one YAML file per source. The Catalog block is consumed
// directly by the downstream query engine's catalog configuration.
type ConnectionProfile struct {
	SourceID       string            `yaml:"source_id"`
	Name           string            `yaml:"name"`
	Type           string            `yaml:"type"`
	Cloud          string            `yaml:"cloud"`
	Connection     Connection        `yaml:"connection"`
	SSHTunnel      *SSHTunnelInfo    `yaml:"ssh_tunnel,omitempty"`
	SampleDatasets []string          `yaml:"sample_datasets,omitempty"`
	Catalog        map[string]string `yaml:"catalog"`
}

// Generator translates live tunnels and catalog entries into connection
// profiles and persists them.
type Generator struct {
	Store     *store.Store
	Endpoints infra.EndpointOracle
	// BastionUser is recorded in the ssh_tunnel block for tunneled sources.
	BastionUser string
}

// GenerateTunneled builds and persists the profile for a tunnel-backed
// source. Regenerating overwrites the prior profile atomically.
func (g *Generator) GenerateTunneled(src catalog.Source, rec store.TunnelRecord) (ConnectionProfile, error) {
	conn := Connection{
		Host:        "localhost",
		Port:        rec.LocalPort,
		Database:    g.databaseFor(src),
		Username:    defaultUsername,
		PasswordEnv: passwordEnv(src.ID),
	}
	p := ConnectionProfile{
		SourceID:   src.ID,
		Name:       src.Name,
		Type:       string(src.Kind),
		Cloud:      src.Cloud,
		Connection: conn,
		SSHTunnel: &SSHTunnelInfo{
			BastionHost: rec.BastionHost,
			BastionUser: g.BastionUser,
			TargetHost:  rec.TargetHost,
			TargetPort:  rec.TargetPort,
			LocalPort:   rec.LocalPort,
		},
		SampleDatasets: src.SampleDatasets,
		Catalog:        catalogProperties(src, conn, true),
	}
	return p, g.write(p)
}

// GenerateDirect builds and persists the profile for a credential-only cloud
// service that needs no tunnel.
func (g *Generator) GenerateDirect(src catalog.Source) (ConnectionProfile, error) {
	conn := Connection{
		Host: directHost(src),
		Port: 443,
	}
	if ep, ok := g.deployedEndpoint(src); ok {
		conn.Host = ep.Host
		if ep.Port != 0 {
			conn.Port = ep.Port
		}
	}
	p := ConnectionProfile{
		SourceID:       src.ID,
		Name:           src.Name,
		Type:           string(src.Kind),
		Cloud:          src.Cloud,
		Connection:     conn,
		SampleDatasets: src.SampleDatasets,
		Catalog:        catalogProperties(src, conn, false),
	}
	return p, g.write(p)
}

// Load reads a persisted profile back; false when none exists.
func (g *Generator) Load(sourceID string) (ConnectionProfile, bool, error) {
	data, ok, err := g.Store.LoadProfile(sourceID)
	if err != nil || !ok {
		return ConnectionProfile{}, ok, err
	}
	var p ConnectionProfile
	if err := yaml.Unmarshal(data, &p); err != nil {
		return ConnectionProfile{}, false, errors.Wrapf(err, "parse profile %s", sourceID)
	}
	return p, true, nil
}

// Delete removes a persisted profile.
func (g *Generator) Delete(sourceID string) error {
	return g.Store.DeleteProfile(sourceID)
}

func (g *Generator) write(p ConnectionProfile) error {
	data, err := yaml.Marshal(p)
	if err != nil {
		return errors.Wrapf(err, "marshal profile %s", p.SourceID)
	}
	if err := g.Store.SaveProfile(p.SourceID, data); err != nil {
		return err
	}
	log.Info().Str("source", p.SourceID).Str("path", g.Store.ProfilePath(p.SourceID)).Msg("connection profile written")
	return nil
}

func (g *Generator) databaseFor(src catalog.Source) string {
	if ep, ok := g.deployedEndpoint(src); ok && ep.Database != "" {
		return ep.Database
	}
	return src.Database
}

func (g *Generator) deployedEndpoint(src catalog.Source) (infra.Endpoint, bool) {
	if g.Endpoints == nil {
		return infra.Endpoint{}, false
	}
	return g.Endpoints.DeployedEndpoint(src.Cloud, oracleType(src.Kind))
}

// oracleType maps a protocol kind onto the provisioning stack's type tag.
func oracleType(kind catalog.ProtocolKind) string {
	switch kind {
	case catalog.ProtocolPostgres:
		return "postgresql"
	case catalog.ProtocolMySQL:
		return "mysql"
	case catalog.ProtocolSQLServer:
		return "sqlserver"
	case catalog.ProtocolObjectStorage:
		return "s3"
	case catalog.ProtocolWarehouse:
		return "warehouse"
	}
	return string(kind)
}

func directHost(src catalog.Source) string {
	switch src.Kind {
	case catalog.ProtocolObjectStorage:
		return "s3.us-east-1.amazonaws.com"
	case catalog.ProtocolWarehouse:
		return "bigquery.googleapis.com"
	default:
		return src.TargetHost
	}
}

func passwordEnv(sourceID string) string {
	return "DATACONNECT_" + strings.ToUpper(strings.ReplaceAll(sourceID, "-", "_")) + "_PASSWORD"
}

// catalogProperties builds the query-engine catalog block for a source. There
// is one builder per protocol kind; the switch is exhaustive over the closed
// kind set.
func catalogProperties(src catalog.Source, conn Connection, tunneled bool) map[string]string {
	switch src.Kind {
	case catalog.ProtocolPostgres:
		return postgresProperties(conn)
	case catalog.ProtocolMySQL:
		return mysqlProperties(conn)
	case catalog.ProtocolSQLServer:
		return sqlserverProperties(conn)
	case catalog.ProtocolObjectStorage:
		return objectStorageProperties()
	case catalog.ProtocolWarehouse:
		return warehouseProperties(src, conn, tunneled)
	}
	// Unreachable for catalog sources; the kind set is closed.
	return nil
}

func postgresProperties(conn Connection) map[string]string {
	return map[string]string{
		"connector.name":                 "postgresql",
		"connection-url":                 fmt.Sprintf("jdbc:postgresql://%s:%d/%s", conn.Host, conn.Port, conn.Database),
		"connection-user":                conn.Username,
		"connection-password":            envRef(conn.PasswordEnv),
		"case-insensitive-name-matching": "true",
	}
}

func mysqlProperties(conn Connection) map[string]string {
	return map[string]string{
		"connector.name":                 "mysql",
		"connection-url":                 fmt.Sprintf("jdbc:mysql://%s:%d/%s", conn.Host, conn.Port, conn.Database),
		"connection-user":                conn.Username,
		"connection-password":            envRef(conn.PasswordEnv),
		"case-insensitive-name-matching": "true",
	}
}

func sqlserverProperties(conn Connection) map[string]string {
	return map[string]string{
		"connector.name":                 "sqlserver",
		"connection-url":                 fmt.Sprintf("jdbc:sqlserver://%s:%d;database=%s", conn.Host, conn.Port, conn.Database),
		"connection-user":                conn.Username,
		"connection-password":            envRef(conn.PasswordEnv),
		"case-insensitive-name-matching": "true",
	}
}

func objectStorageProperties() map[string]string {
	return map[string]string{
		"connector.name":        "hive",
		"hive.s3.aws-access-key": envRef("AWS_ACCESS_KEY_ID"),
		"hive.s3.aws-secret-key": envRef("AWS_SECRET_ACCESS_KEY"),
		"hive.s3.region":         "us-east-1",
		"hive.metastore.uri":     "thrift://localhost:9083",
	}
}

// warehouseProperties covers both warehouse flavors: a bastion-fronted SQL
// warehouse speaks the sqlserver wire protocol through the tunnel, a direct
// cloud warehouse is addressed by project.
func warehouseProperties(src catalog.Source, conn Connection, tunneled bool) map[string]string {
	if tunneled {
		return sqlserverProperties(conn)
	}
	return map[string]string{
		"connector.name":                 "bigquery",
		"bigquery.project-id":            src.ProjectID,
		"bigquery.credentials-key":       envRef("GOOGLE_APPLICATION_CREDENTIALS"),
		"case-insensitive-name-matching": "true",
	}
}

func envRef(name string) string {
	return "${ENV:" + name + "}"
}
