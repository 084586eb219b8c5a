package cli

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/spf13/cobra"

	"github.com/information-sharing-networks/veogen/internal/creator"
	"github.com/information-sharing-networks/veogen/internal/credential"
	"github.com/information-sharing-networks/veogen/internal/datasource"
	"github.com/information-sharing-networks/veogen/internal/generator"
	"github.com/information-sharing-networks/veogen/internal/manifest"
	"github.com/information-sharing-networks/veogen/internal/veo"
)

var buildCmd = &cobra.Command{
	Use:   "build [flags] [args...]",
	Short: "Create signed VEOs",
	Long: `Create one signed VEO for each file, record or simple record row of the data.

The data is a tab separated file (-d) or the result of an SQL query (--query). Each VEO
is signed by every signer given with -s; the first signer also signs the lock signature.
Any positional arguments are available to templates as $$ argument N $$.

Examples:
  veocreator build -t ./templates -d data.txt -s signer.pfx -p secret -o ./veos
  veocreator build -t ./templates --database-url postgres://localhost/archive \
      --query "SELECT kind, file, title FROM transfers" -s signer.key.pem --chain signer.cert.pem`,
	RunE: runBuild,
}

var (
	templateDir  string
	dataFile     string
	databaseURL  string
	query        string
	signerPaths  []string
	passwords    []string
	keyFormat    string
	chainPaths   []string
	hashName     string
	outputDir    string
	revisionID   int
	manifestPath string
)

func init() {
	f := buildCmd.Flags()
	// -h is the hash algorithm, so help has no shorthand
	f.Bool("help", false, "help for build")
	f.StringVarP(&templateDir, "templates", "t", "", "Template directory (default $VEO_TEMPLATE_DIR)")
	f.StringVarP(&dataFile, "data", "d", "", "Tab separated data file")
	f.StringVar(&databaseURL, "database-url", "", "PostgreSQL connection string used with --query (default $VEO_DATABASE_URL)")
	f.StringVar(&query, "query", "", "SQL query returning the data rows")
	f.StringArrayVarP(&signerPaths, "signer", "s", nil, "Signer key file (PKCS#12, PEM or JWK), repeat for more signers")
	f.StringArrayVarP(&passwords, "password", "p", nil, "Keystore password for the signer in the same position (default $VEO_SIGNER_PASSWORD)")
	f.StringVar(&keyFormat, "key-format", "", "Signer key format: pfx, pem or jwk (default from the file name)")
	f.StringArrayVar(&chainPaths, "chain", nil, "PEM certificate chain for the PEM or JWK signer in the same position")
	f.StringVarP(&hashName, "hash", "h", "", "Hash algorithm: SHA-1, SHA-256, SHA-384 or SHA-512 (default $VEO_HASH_ALGORITHM)")
	f.StringVarP(&outputDir, "output", "o", "", "Directory for VEOs with relative names (default $VEO_OUTPUT_DIR)")
	f.IntVar(&revisionID, "revision", 0, "Revision number used in VEO ids (default $VEO_REVISION_ID)")
	f.StringVar(&manifestPath, "manifest", "", "Write a canonical JSON manifest of the VEOs created to this file")

	buildCmd.MarkFlagRequired("signer")
	buildCmd.MarkFlagsMutuallyExclusive("data", "query")
	buildCmd.MarkFlagsOneRequired("data", "query")
}

func runBuild(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}

	// flags override the environment
	if templateDir == "" {
		templateDir = cfg.TemplateDir
	}
	if templateDir == "" {
		return fmt.Errorf("a template directory is required (-t or VEO_TEMPLATE_DIR)")
	}
	if hashName == "" {
		hashName = cfg.HashAlgorithm
	}
	if outputDir == "" {
		outputDir = cfg.OutputDir
	}
	if revisionID == 0 {
		revisionID = cfg.RevisionID
	}
	if keyFormat == "" {
		keyFormat = cfg.KeyFormat
	}
	if databaseURL == "" {
		databaseURL = cfg.DatabaseURL
	}

	h, err := generator.ParseHashAlgorithm(hashName)
	if err != nil {
		return err
	}

	templates, err := creator.LoadTemplates(templateDir, args, appLogger)
	if err != nil {
		return err
	}

	signers, err := loadSigners()
	if err != nil {
		return err
	}

	runID := uuid.New()
	opts := []creator.Option{creator.WithLogger(appLogger), creator.WithRunID(runID)}

	var m *manifest.Manifest
	if manifestPath != "" {
		m = manifest.New(runID, time.Now(), generator.HashName(h))
		opts = append(opts, creator.WithManifest(m))
	}

	c, err := creator.New(templates, creator.Config{
		OutputDir:  outputDir,
		Hash:       h,
		RevisionID: revisionID,
		Signers:    signers,
	}, opts...)
	if err != nil {
		return err
	}

	ds, closeData, err := openDataSource(ctx)
	if err != nil {
		return err
	}
	defer closeData()

	sum, err := c.Build(ctx, ds)
	if err != nil {
		return fmt.Errorf("build stopped after %d VEOs: %w", sum.Built, err)
	}

	if m != nil {
		if err := m.WriteFile(manifestPath); err != nil {
			return err
		}
		appLogger.Info("manifest written", slog.String("path", manifestPath))
	}

	fmt.Fprintf(cmd.OutOrStdout(), "✓ %d VEOs created, %d rows skipped (run %s)\n", sum.Built, sum.Skipped, runID)
	return nil
}

// loadSigners pairs each signer with the password and chain given in the same position.
func loadSigners() ([]generator.Credential, error) {
	signers := make([]generator.Credential, 0, len(signerPaths))
	for i, path := range signerPaths {
		password := cfg.SignerPassword
		if i < len(passwords) {
			password = passwords[i]
		}
		chain := ""
		if i < len(chainPaths) {
			chain = chainPaths[i]
		}

		cred, err := credential.Load(keyFormat, path, password, chain, appLogger)
		if err != nil {
			return nil, fmt.Errorf("failed to load signer %d: %w", i+1, err)
		}
		appLogger.Debug("signer loaded",
			slog.String("path", path),
			slog.String("algorithm", cred.Algorithm()),
			slog.String("subject", cred.CertificateSubjectText(0)))
		signers = append(signers, cred)
	}
	return signers, nil
}

// openDataSource returns the rows to build from and a function that releases them.
func openDataSource(ctx context.Context) (veo.DataSource, func(), error) {
	if query == "" {
		table, err := datasource.OpenTable(dataFile)
		if err != nil {
			return nil, nil, err
		}
		return table, func() { table.Close() }, nil
	}

	if databaseURL == "" {
		return nil, nil, fmt.Errorf("--query needs a database (--database-url or VEO_DATABASE_URL)")
	}
	pool, err := connect(ctx)
	if err != nil {
		return nil, nil, err
	}
	ds, err := datasource.NewQueryDataSource(ctx, pool, query)
	if err != nil {
		pool.Close()
		return nil, nil, err
	}
	return ds, func() {
		ds.Close()
		pool.Close()
	}, nil
}

func connect(ctx context.Context) (*pgxpool.Pool, error) {
	poolConfig, err := pgxpool.ParseConfig(databaseURL)
	if err != nil {
		return nil, fmt.Errorf("failed to parse database URL: %w", err)
	}
	poolConfig.MaxConns = cfg.DBMaxConnections
	poolConfig.ConnConfig.ConnectTimeout = cfg.DBConnectTimeout

	pool, err := pgxpool.NewWithConfig(ctx, poolConfig)
	if err != nil {
		return nil, fmt.Errorf("failed to create connection pool: %w", err)
	}

	pingCtx, cancel := context.WithTimeout(ctx, cfg.DatabasePingTimeout)
	defer cancel()
	if err := pool.Ping(pingCtx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}
	return pool, nil
}
