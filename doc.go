// Package apk builds and reads APK package archives.
//
// An archive is the concatenation of two independently compressed tar
// streams: the metadata segment (a .PKGINFO entry plus optional detached
// signature entries) followed by the payload segment (the package's
// installable files). Because each segment is a complete gzip stream,
// consumers read the metadata by decompressing only the first member.
//
// # Building
//
// Describe the package with a [pkginfo.Package] and point Build at the
// staged payload directory:
//
//	pkg := &pkginfo.Package{Name: "hello", Version: "1.0-r0", Arch: "x86_64"}
//	f, err := apk.Build(ctx, pkg, "./stage",
//	    apk.BuildWithKeyFile("/etc/apk/keys/build.rsa"),
//	)
//	if err != nil {
//	    return err
//	}
//	err = f.Save("hello-1.0-r0.apk")
//
// The pipeline computes the payload content hash over the compressed
// payload segment, records it in the metadata, and signs the metadata
// segment before it is finalized. Paths containing a .debug directory
// segment are excluded by default; additional predicates compose with
// [BuildWithFilters].
//
// # Reading
//
//	f, err := apk.Open("hello-1.0-r0.apk")
//	if err != nil {
//	    return err
//	}
//	fmt.Println(f.Package().Name, f.Package().Version)
//
// Reading recovers the metadata record only; signature verification and
// payload extraction are out of scope.
package apk
