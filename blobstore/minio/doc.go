// Package minio stores model snapshots in MinIO or any other S3-compatible
// object store (Ceph, Garage, SeaweedFS) through the MinIO client.
//
//	client, err := minio.New("localhost:9000", &minio.Options{
//	    Creds:  credentials.NewStaticV4("minioadmin", "minioadmin", ""),
//	    Secure: false,
//	})
//	if err != nil {
//	    log.Fatal(err)
//	}
//
//	store := minioblob.NewStore(client, "artlens", "models/")
//	p, err := artlens.New(artlens.WithBlobStore(store))
//
// The package needs no AWS SDK and works in air-gapped deployments.
package minio
