package persistence

const (
	stmtCreateCredential = `
		INSERT INTO credentials (id, supplier, environment, auth_type, secret_data, created_by, created_at, updated_at, allow_self_rotation)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)`

	stmtGetCredential = `
		SELECT id, supplier, environment, auth_type, secret_data, created_by, created_at, updated_at, allow_self_rotation
		FROM credentials WHERE id = $1`

	stmtGetCredentialForUpdate = stmtGetCredential + ` FOR UPDATE`

	stmtListCredentials = `
		SELECT id, supplier, environment, auth_type, secret_data, created_by, created_at, updated_at, allow_self_rotation
		FROM credentials
		WHERE ($1 = '' OR supplier = $1) AND ($2 = '' OR environment = $2)
		ORDER BY created_at, id`

	stmtUpdateCredential = `
		UPDATE credentials
		SET supplier = $2, environment = $3, auth_type = $4, secret_data = $5, updated_at = $6, allow_self_rotation = $7
		WHERE id = $1`

	stmtDeleteCredential = `DELETE FROM credentials WHERE id = $1`

	stmtAppendAudit = `
		INSERT INTO audit_logs (credential_id, action, actor, details, timestamp)
		VALUES ($1, $2, $3, $4, $5)
		RETURNING id`

	stmtQueryAudit = `
		SELECT id, credential_id, action, actor, details, timestamp
		FROM audit_logs
		WHERE ($1 = '' OR credential_id::text = $1)
		  AND ($2 = '' OR action = $2)
		  AND ($3 = '' OR actor = $3)
		ORDER BY id DESC
		LIMIT $4`
)
