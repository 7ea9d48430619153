package repository

const (
	createUploadQuery = `INSERT INTO uploads (upload_id, user_id, file_name, file_size, source_bucket, source_key, state, series_id, episode_id, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, 'uploading', $7, $8, now())
		RETURNING *`

	getUploadByIDQuery = `SELECT * FROM uploads WHERE upload_id = $1`

	getTotalUploadsByUserQuery = `SELECT COUNT(id) FROM uploads WHERE user_id = $1 AND ($2 = '' OR state = $2)`

	getUploadsByUserQuery = `SELECT * FROM uploads
		WHERE user_id = $1 AND ($2 = '' OR state = $2)
		ORDER BY created_at DESC
		OFFSET $3 LIMIT $4`

	markProcessingQuery = `UPDATE uploads
		SET state = 'processing', processing_started_at = now()
		WHERE upload_id = $1 AND state = 'uploading'`

	markCompletedQuery = `UPDATE uploads
		SET state = 'completed',
			duration_seconds = $2,
			width = $3,
			height = $4,
			aspect_ratio = $5,
			master_key = $6,
			thumbnail_key = $7,
			processing_ended_at = now()
		WHERE upload_id = $1 AND state = 'processing'`

	markFailedQuery = `UPDATE uploads
		SET state = 'failed', error_message = $2, processing_ended_at = now()
		WHERE upload_id = $1 AND state IN ('uploading', 'processing')`

	getUploadStateQuery = `SELECT state FROM uploads WHERE upload_id = $1`

	insertRenditionQuery = `INSERT INTO renditions (upload_id, label, width, height, video_bitrate, audio_bitrate, manifest_key, byte_size)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)`

	getRenditionsQuery = `SELECT * FROM renditions WHERE upload_id = $1 ORDER BY video_bitrate ASC`
)
